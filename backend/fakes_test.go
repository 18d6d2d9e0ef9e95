package backend

import (
	"time"
	"unsafe"

	"github.com/andewx/dieselcompute/memory"
)

// hostMemory is a DeviceMemory backed by a Go byte slice.
type hostMemory struct {
	DeviceObjectBase[DeviceMemoryDesc]
	data    []byte
	mapped  bool
	maps    int
	unmaps  int
	reqBits uint32
}

func newHostMemory(size uint64, flags MemoryKindFlags) *hostMemory {
	m := memory.Allocate[hostMemory]()
	m.Init(DeviceMemoryDesc{Name: "host", Size: size, Flags: flags})
	return m
}

func (m *hostMemory) Init(desc DeviceMemoryDesc) error {
	m.InitBase(desc.Name, desc)
	m.data = make([]byte, desc.Size)
	m.reqBits = 1
	return m.FinishInit(nil)
}

func (m *hostMemory) Reset() {
	m.Unmap()
	m.data = nil
	m.ResetBase()
}

func (m *hostMemory) Map(offset, size uint64) (unsafe.Pointer, error) {
	if !m.Desc().Flags.Has(HostAccessible) {
		return nil, Errorf(InvalidOperation, "Map", "not host accessible")
	}
	if offset+size > uint64(len(m.data)) {
		return nil, Errorf(InvalidArguments, "Map", "out of range")
	}
	m.Unmap()
	m.mapped = true
	m.maps++
	return unsafe.Pointer(&m.data[offset]), nil
}

func (m *hostMemory) Unmap() {
	if !m.mapped {
		return
	}
	m.mapped = false
	m.unmaps++
}

func (m *hostMemory) IsCompatible(obj DeviceObject) bool {
	return m.IsCompatibleWithin(obj, m.Desc().Size)
}

func (m *hostMemory) IsCompatibleWithin(obj DeviceObject, sizeLimit uint64) bool {
	r, ok := obj.(MemoryRequirer)
	if !ok {
		return false
	}
	req := r.MemoryRequirements()
	return req.Size <= sizeLimit && req.TypeBits&m.reqBits != 0
}

// sizedObject is a DeviceObject with fixed memory requirements.
type sizedObject struct {
	DeviceObjectBase[BufferDesc]
	req MemoryRequirements
}

func (o *sizedObject) Reset() { o.ResetBase() }

func (o *sizedObject) MemoryRequirements() MemoryRequirements { return o.req }

type fakeFence struct {
	DeviceObjectBase[FenceDesc]
	state FenceState
}

func (f *fakeFence) Init(desc FenceDesc) error {
	f.InitBase(desc.Name, desc)
	f.state = desc.InitialState
	return f.FinishInit(nil)
}

func (f *fakeFence) Reset()                  { f.ResetBase() }
func (f *fakeFence) State() FenceState       { return f.state }
func (f *fakeFence) ResetState()             { f.state = FenceReset }
func (f *fakeFence) SignalOnCpu() error      { f.state = FenceSignaled; return nil }
func (f *fakeFence) Wait() error             { return f.WaitOnCpu(0) }
func (f *fakeFence) WaitOnCpu(time.Duration) error {
	if f.state != FenceSignaled {
		return Timeout
	}
	return nil
}

type fakeRecorder struct {
	begins, ends, resets int
	commands             []string
	endErr               error
}

func (r *fakeRecorder) BeginRecording() error { r.begins++; r.commands = nil; return nil }
func (r *fakeRecorder) EndRecording() error   { r.ends++; return r.endErr }
func (r *fakeRecorder) ResetRecording() error { r.resets++; r.commands = nil; return nil }

func (r *fakeRecorder) RecordMemoryBarrier(Buffer, MemoryBarrierDesc) {
	r.commands = append(r.commands, "barrier")
}

func (r *fakeRecorder) RecordCopy(Buffer, Buffer, BufferCopyRegion) {
	r.commands = append(r.commands, "copy")
}

func (r *fakeRecorder) RecordDispatch(Kernel, uint32, uint32, uint32) {
	r.commands = append(r.commands, "dispatch")
}

// testList exposes CommandListBase with a fake Submit.
type testList struct {
	CommandListBase
	submits int
}

func (l *testList) Submit() error {
	if err := l.PrepareSubmit(); err != nil {
		return err
	}
	l.Fence().ResetState()
	l.submits++
	l.MarkPending()
	return nil
}

func newTestList(flags CommandListFlags) (*testList, *fakeFence, *fakeRecorder) {
	fence := &fakeFence{}
	fence.Init(FenceDesc{Name: "fence", InitialState: FenceSignaled})
	rec := &fakeRecorder{}
	l := &testList{}
	l.InitCommandList(CommandListDesc{Name: "list", QueueKind: QueueCompute, Flags: flags}, fence, rec)
	return l, fence, rec
}

type fakeBuffer struct {
	sizedObject
}

func newFakeBuffer(name string, size uint64) *fakeBuffer {
	b := &fakeBuffer{}
	b.Init(BufferDesc{Name: name, Size: size})
	b.req = MemoryRequirements{Size: size, Alignment: 4, TypeBits: 1}
	return b
}

func (b *fakeBuffer) Init(desc BufferDesc) error {
	b.InitBase(desc.Name, desc)
	return b.FinishInit(nil)
}

func (b *fakeBuffer) BindMemory(DeviceMemorySlice) error { return nil }
