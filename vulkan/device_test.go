package vulkan

import (
	"errors"
	"testing"
	"time"

	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/memory"
)

const identityKernel = `
@group(0) @binding(0) var<storage, read_write> values: array<u32>;

@compute @workgroup_size(16)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    values[id.x] = values[id.x];
}
`

// newTestDevice creates a device on the first adapter, skipping the test when
// no Vulkan driver is installed.
func newTestDevice(t *testing.T) *ComputeDevice {
	t.Helper()
	factory := NewDeviceFactory()
	if err := factory.Init(backend.DeviceFactoryDesc{ApplicationName: "dieselcompute tests"}); err != nil {
		factory.Release()
		t.Skipf("Vulkan is not available: %v", err)
	}
	adapters := factory.Adapters()
	if len(adapters) == 0 {
		factory.Release()
		t.Skip("no Vulkan adapters")
	}

	device, err := factory.CreateDevice()
	factory.Release()
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	t.Cleanup(func() { device.Release() })
	if err := device.Init(backend.ComputeDeviceDesc{AdapterID: adapters[0].ID}); err != nil {
		t.Skipf("couldn't create a device on %s: %v", adapters[0], err)
	}
	return device.(*ComputeDevice)
}

func newTestBuffer(t *testing.T, device *ComputeDevice, name string, size uint64) backend.Buffer {
	t.Helper()
	buffer, err := device.CreateBuffer()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { buffer.Release() })
	if err := buffer.Init(backend.BufferDesc{Name: name, Size: size}); err != nil {
		t.Fatalf("Init %s: %v", name, err)
	}
	return buffer
}

func newTestMemory(t *testing.T, flags backend.MemoryKindFlags, objects ...backend.DeviceObject) backend.DeviceMemory {
	t.Helper()
	mem, err := backend.AllocateMemoryFor(flags, objects...)
	if err != nil {
		t.Fatalf("AllocateMemoryFor: %v", err)
	}
	t.Cleanup(func() { mem.Release() })
	return mem
}

func TestFactoryRejectsUnknownAdapter(t *testing.T) {
	device := newTestDevice(t)
	factory := device.factory.Get()

	other, err := factory.CreateDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer other.Release()
	err = other.Init(backend.ComputeDeviceDesc{AdapterID: len(factory.Adapters()) + 7})
	if backend.CodeOf(err) != backend.InvalidArguments {
		t.Errorf("Init with unknown adapter = %v, want InvalidArguments", err)
	}
}

func TestDeviceKeepsFactoryAlive(t *testing.T) {
	device := newTestDevice(t)
	counter := device.factory.Get().RefCounter()
	if got := counter.StrongRefCount(); got != 1 {
		t.Errorf("factory has %d references, want 1 held by the device", got)
	}
}

func TestFenceStates(t *testing.T) {
	device := newTestDevice(t)

	fence, err := device.CreateFence()
	if err != nil {
		t.Fatal(err)
	}
	defer fence.Release()
	if err := fence.Init(backend.FenceDesc{Name: "test fence"}); err != nil {
		t.Fatal(err)
	}

	if got := fence.State(); got != backend.FenceReset {
		t.Errorf("new fence is %s, want Reset", got)
	}
	if err := fence.WaitOnCpu(time.Millisecond); !errors.Is(err, backend.Timeout) {
		t.Errorf("WaitOnCpu on a reset fence = %v, want Timeout", err)
	}
	if err := fence.SignalOnCpu(); err != nil {
		t.Fatalf("SignalOnCpu: %v", err)
	}
	if got := fence.State(); got != backend.FenceSignaled {
		t.Errorf("fence is %s after SignalOnCpu, want Signaled", got)
	}
	fence.ResetState()
	if got := fence.State(); got != backend.FenceReset {
		t.Errorf("fence is %s after ResetState, want Reset", got)
	}

	signaled, err := device.CreateFence()
	if err != nil {
		t.Fatal(err)
	}
	defer signaled.Release()
	if err := signaled.Init(backend.FenceDesc{Name: "signaled", InitialState: backend.FenceSignaled}); err != nil {
		t.Fatal(err)
	}
	if err := signaled.WaitOnCpu(time.Second); err != nil {
		t.Errorf("WaitOnCpu on a signaled fence: %v", err)
	}
}

func TestMemoryBoundaries(t *testing.T) {
	device := newTestDevice(t)

	mem, err := device.CreateMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Release()
	err = mem.Init(backend.DeviceMemoryDesc{Name: "empty", Flags: backend.DeviceAccessible})
	if backend.CodeOf(err) != backend.InvalidArguments {
		t.Errorf("Init without objects = %v, want InvalidArguments", err)
	}
	if mem.ObjectState() != backend.Failed {
		t.Errorf("memory is %s after a failed Init", mem.ObjectState())
	}

	zero, err := device.CreateBuffer()
	if err != nil {
		t.Fatal(err)
	}
	defer zero.Release()
	if err := zero.Init(backend.BufferDesc{Name: "zero"}); backend.CodeOf(err) != backend.InvalidArguments {
		t.Errorf("zero sized buffer = %v, want InvalidArguments", err)
	}
}

func TestBufferBinding(t *testing.T) {
	device := newTestDevice(t)
	buffer := newTestBuffer(t, device, "bound", 256)
	mem := newTestMemory(t, backend.HostAndDeviceAccessible, buffer)

	if mem.Desc().Size < 256 {
		t.Errorf("memory size %d is smaller than the buffer", mem.Desc().Size)
	}
	if _, err := backend.NewDeviceMemorySlice(mem, 0, mem.Desc().Size+1); backend.CodeOf(err) != backend.InvalidArguments {
		t.Errorf("oversized slice = %v, want InvalidArguments", err)
	}
	if _, err := mem.Map(0, mem.Desc().Size+1); backend.CodeOf(err) != backend.InvalidArguments {
		t.Errorf("oversized map = %v, want InvalidArguments", err)
	}

	tooSmall := backend.DeviceMemorySlice{}
	if err := buffer.BindMemory(tooSmall); backend.CodeOf(err) != backend.Fail {
		t.Errorf("BindMemory(nil slice) = %v, want Fail", err)
	}

	memCounter := mem.(*DeviceMemory).RefCounter()
	if err := buffer.BindMemory(backend.WholeMemory(mem)); err != nil {
		t.Fatalf("BindMemory: %v", err)
	}
	if got := memCounter.StrongRefCount(); got != 2 {
		t.Errorf("memory has %d references after bind, want 2", got)
	}
	if err := buffer.BindMemory(backend.WholeMemory(mem)); backend.CodeOf(err) != backend.InvalidOperation {
		t.Errorf("second BindMemory = %v, want InvalidOperation", err)
	}
	buffer.Reset()
	if got := memCounter.StrongRefCount(); got != 1 {
		t.Errorf("memory has %d references after buffer reset, want 1", got)
	}
}

func TestDeviceMemoryIsNotMappable(t *testing.T) {
	device := newTestDevice(t)
	buffer := newTestBuffer(t, device, "device only", 64)
	mem := newTestMemory(t, backend.DeviceAccessible, buffer)

	if _, err := mem.Map(0, 64); backend.CodeOf(err) != backend.InvalidOperation {
		t.Errorf("Map of device-only memory = %v, want InvalidOperation", err)
	}
	mem.Unmap()
	mem.Unmap()
}

func TestDescriptorPoolGrowth(t *testing.T) {
	device := newTestDevice(t)
	layout := []backend.KernelResourceDesc{{BindingIndex: 0, Kind: backend.ResourceRWBuffer}}

	bindings := make([]memory.Ptr[backend.ResourceBinding], 0, initialDescriptorPoolSize+1)
	defer func() {
		for i := range bindings {
			bindings[i].Reset()
		}
	}()
	for i := 0; i <= initialDescriptorPoolSize; i++ {
		rb, err := device.CreateResourceBinding()
		if err != nil {
			t.Fatal(err)
		}
		bindings = append(bindings, memory.Attach(rb))
		if err := rb.Init(backend.ResourceBindingDesc{Name: "growth", Layout: layout}); err != nil {
			t.Fatalf("binding %d: %v", i, err)
		}
	}
	if device.descriptors.poolCount() == 0 {
		t.Error("descriptor allocator has no pools")
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	const count = 32
	const size = count * 4
	device := newTestDevice(t)

	factory := device.factory.Get()
	kc, err := factory.CreateKernelCompiler()
	if err != nil {
		t.Fatal(err)
	}
	defer kc.Release()
	if err := kc.Init(backend.KernelCompilerDesc{Name: "wgsl", SourceLanguage: backend.SourceWGSL}); err != nil {
		t.Fatal(err)
	}
	bytecode, err := kc.Compile(backend.KernelCompilerArgs{SourceCode: []byte(identityKernel)})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	staging := newTestBuffer(t, device, "staging", size)
	storage := newTestBuffer(t, device, "storage", size)
	stagingMem := newTestMemory(t, backend.HostAndDeviceAccessible, staging)
	storageMem := newTestMemory(t, backend.DeviceAccessible, storage)
	if err := staging.BindMemory(backend.WholeMemory(stagingMem)); err != nil {
		t.Fatal(err)
	}
	if err := storage.BindMemory(backend.WholeMemory(storageMem)); err != nil {
		t.Fatal(err)
	}

	slice, err := backend.NewDeviceMemorySlice(stagingMem, 0, size)
	if err != nil {
		t.Fatal(err)
	}
	values, err := backend.MapSlice[uint32](slice)
	if err != nil {
		t.Fatal(err)
	}
	for i := range values {
		values[i] = uint32(i)
	}
	slice.Unmap()

	rb, _ := device.CreateResourceBinding()
	defer rb.Release()
	if err := rb.Init(backend.ResourceBindingDesc{
		Name:   "identity binding",
		Layout: []backend.KernelResourceDesc{{BindingIndex: 0, Kind: backend.ResourceRWBuffer}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := rb.SetVariable(0, storage); err != nil {
		t.Fatal(err)
	}
	if err := rb.SetVariable(3, storage); backend.CodeOf(err) != backend.InvalidArguments {
		t.Errorf("SetVariable at an unknown index = %v, want InvalidArguments", err)
	}

	kernel, _ := device.CreateKernel()
	defer kernel.Release()
	if err := kernel.Init(backend.KernelDesc{Name: "identity", ResourceBinding: rb, Bytecode: bytecode}); err != nil {
		t.Fatal(err)
	}

	list, _ := device.CreateCommandList()
	defer list.Release()
	if err := list.Init(backend.CommandListDesc{Name: "round trip", QueueKind: backend.QueueCompute}); err != nil {
		t.Fatal(err)
	}
	if err := list.Submit(); backend.CodeOf(err) != backend.InvalidOperation {
		t.Errorf("Submit in Initial state = %v, want InvalidOperation", err)
	}
	err = list.Record(func(r *backend.CommandRecorder) error {
		r.Copy(staging, storage, backend.BufferCopyRegion{Size: size})
		r.MemoryBarrier(storage, backend.MemoryBarrierDesc{
			SourceAccess: backend.AccessTransferWrite,
			DestAccess:   backend.AccessKernelRead | backend.AccessKernelWrite,
		})
		r.Dispatch(kernel, count/16, 1, 1)
		r.MemoryBarrier(storage, backend.MemoryBarrierDesc{
			SourceAccess: backend.AccessKernelWrite,
			DestAccess:   backend.AccessTransferRead,
		})
		r.Copy(storage, staging, backend.BufferCopyRegion{Size: size})
		return nil
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := list.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := list.Fence().WaitOnCpu(5 * time.Second); err != nil {
		t.Fatalf("WaitOnCpu: %v", err)
	}
	if got := list.State(); got != backend.CommandListExecutable {
		t.Errorf("list is %s after completion, want Executable", got)
	}

	values, err = backend.MapSlice[uint32](slice)
	if err != nil {
		t.Fatal(err)
	}
	defer slice.Unmap()
	for i, v := range values {
		if v != uint32(i) {
			t.Fatalf("values[%d] = %d, want %d", i, v, i)
		}
	}
}
