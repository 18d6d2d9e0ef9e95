package backend

import (
	"context"
	"time"
	"unsafe"

	"github.com/andewx/dieselcompute/memory"
)

// DeviceObject is implemented by every resource created by a ComputeDevice.
// Objects are created uninitialized; Reset releases backend handles and is a
// no-op on an uninitialized object.
type DeviceObject interface {
	memory.Object
	DebugName() string
	Device() ComputeDevice
	ObjectState() ObjectState
	Reset()
}

// MemoryRequirer is implemented by device objects that can be placed in
// DeviceMemory.
type MemoryRequirer interface {
	MemoryRequirements() MemoryRequirements
}

type Buffer interface {
	DeviceObject
	MemoryRequirer
	Init(desc BufferDesc) error
	Desc() BufferDesc
	// BindMemory places the buffer in slice. The buffer keeps a reference to
	// the memory until it is reset.
	BindMemory(slice DeviceMemorySlice) error
}

type DeviceMemory interface {
	DeviceObject
	Init(desc DeviceMemoryDesc) error
	Desc() DeviceMemoryDesc
	// Map returns a host pointer to [offset, offset+size). Only valid for
	// host-accessible memory. Mapping again unmaps first.
	Map(offset, size uint64) (unsafe.Pointer, error)
	// Unmap is idempotent.
	Unmap()
	IsCompatible(obj DeviceObject) bool
	IsCompatibleWithin(obj DeviceObject, sizeLimit uint64) bool
}

type Fence interface {
	DeviceObject
	Init(desc FenceDesc) error
	Desc() FenceDesc
	State() FenceState
	ResetState()
	SignalOnCpu() error
	// Wait blocks until the fence is signaled.
	Wait() error
	// WaitOnCpu blocks until the fence is signaled or timeout elapses, in which
	// case the returned error is Timeout.
	WaitOnCpu(timeout time.Duration) error
}

type CommandList interface {
	DeviceObject
	Init(desc CommandListDesc) error
	Desc() CommandListDesc
	Fence() Fence
	State() CommandListState
	Begin() (*CommandRecorder, error)
	Record(fn func(r *CommandRecorder) error) error
	ResetState()
	Submit() error
}

type ResourceBinding interface {
	DeviceObject
	Init(desc ResourceBindingDesc) error
	Desc() ResourceBindingDesc
	SetVariable(bindingIndex int, buffer Buffer) error
}

type Kernel interface {
	DeviceObject
	Init(desc KernelDesc) error
	Desc() KernelDesc
}

type KernelCompiler interface {
	memory.Object
	Init(desc KernelCompilerDesc) error
	Desc() KernelCompilerDesc
	Reset()
	Compile(args KernelCompilerArgs) ([]byte, error)
	CompileContext(ctx context.Context, args KernelCompilerArgs) ([]byte, error)
}

type ComputeDevice interface {
	memory.Object
	Init(desc ComputeDeviceDesc) error
	Desc() ComputeDeviceDesc
	Reset()
	CreateBuffer() (Buffer, error)
	CreateMemory() (DeviceMemory, error)
	CreateFence() (Fence, error)
	CreateCommandList() (CommandList, error)
	CreateResourceBinding() (ResourceBinding, error)
	CreateKernel() (Kernel, error)
}

type DeviceFactory interface {
	memory.Object
	Init(desc DeviceFactoryDesc) error
	Desc() DeviceFactoryDesc
	Reset()
	BackendKind() BackendKind
	Adapters() []AdapterInfo
	CreateDevice() (ComputeDevice, error)
	CreateKernelCompiler() (KernelCompiler, error)
}
