package vulkan

import (
	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/internal/logging"
	"github.com/andewx/dieselcompute/memory"
	vk "github.com/vulkan-go/vulkan"
)

func bufferUsageFlags(usage backend.BufferUsage) vk.BufferUsageFlags {
	flags := vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit
	switch usage {
	case backend.BufferUsageStorage:
		flags |= vk.BufferUsageStorageBufferBit
	case backend.BufferUsageConstant:
		flags |= vk.BufferUsageUniformBufferBit
	}
	return vk.BufferUsageFlags(flags)
}

type Buffer struct {
	backend.DeviceObjectBase[backend.BufferDesc]
	native       vk.Buffer
	requirements backend.MemoryRequirements
	memory       memory.Ptr[backend.DeviceMemory]
	memoryOffset uint64
}

func (b *Buffer) Init(desc backend.BufferDesc) error {
	b.Reset()
	b.InitBase(desc.Name, desc)
	return b.FinishInit(b.create(desc))
}

func (b *Buffer) create(desc backend.BufferDesc) error {
	device := native(b.Device())
	if device == nil || !device.initialized() {
		return notInitialized("Buffer.Init")
	}
	if desc.Size == 0 {
		return backend.Errorf(backend.InvalidArguments, "Buffer.Init", "buffer %q has zero size", desc.Name)
	}

	var buffer vk.Buffer
	ret := vk.CreateBuffer(device.handle, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       bufferUsageFlags(desc.Usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buffer)
	if isError(ret) {
		err := newError("vkCreateBuffer", ret)
		logging.For("vulkan").WithError(err).WithField("buffer", desc.Name).Error("couldn't create Vulkan buffer")
		return err
	}
	b.native = buffer

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.handle, buffer, &reqs)
	reqs.Deref()
	b.requirements = backend.MemoryRequirements{
		Size:      uint64(reqs.Size),
		Alignment: uint64(reqs.Alignment),
		TypeBits:  reqs.MemoryTypeBits,
	}
	return nil
}

func (b *Buffer) MemoryRequirements() backend.MemoryRequirements {
	return b.requirements
}

// BindMemory places the buffer at the start of slice.
func (b *Buffer) BindMemory(slice backend.DeviceMemorySlice) error {
	const op = "Buffer.BindMemory"
	if !b.Initialized() {
		return notInitialized(op)
	}
	if !b.memory.IsNil() {
		return backend.Errorf(backend.InvalidOperation, op, "buffer %q is already bound to memory", b.DebugName())
	}
	if !slice.IsCompatible(b) {
		return backend.Errorf(backend.Fail, op, "memory is incompatible with buffer %q", b.DebugName())
	}
	mem, ok := slice.Memory().(*DeviceMemory)
	if !ok || native(mem.Device()) != native(b.Device()) {
		return backend.Errorf(backend.Fail, op, "memory was not allocated by the device of %q", b.DebugName())
	}
	if slice.Offset()%max(b.requirements.Alignment, 1) != 0 {
		return backend.Errorf(backend.Fail, op, "offset %d violates the %d byte alignment of %q",
			slice.Offset(), b.requirements.Alignment, b.DebugName())
	}

	ret := vk.BindBufferMemory(native(b.Device()).handle, b.native, mem.native, vk.DeviceSize(slice.Offset()))
	if isError(ret) {
		return newError("vkBindBufferMemory", ret)
	}
	b.memory = memory.NewPtr[backend.DeviceMemory](mem)
	b.memoryOffset = slice.Offset()
	return nil
}

// Memory returns the slice the buffer is bound to.
func (b *Buffer) Memory() backend.DeviceMemorySlice {
	if b.memory.IsNil() {
		return backend.DeviceMemorySlice{}
	}
	slice, _ := backend.NewDeviceMemorySlice(b.memory.Get(), b.memoryOffset, b.Desc().Size)
	return slice
}

func (b *Buffer) Reset() {
	if !isNull(b.native) {
		vk.DestroyBuffer(native(b.Device()).handle, b.native, nil)
		b.native = nil
	}
	b.memory.Reset()
	b.memoryOffset = 0
	b.requirements = backend.MemoryRequirements{}
	b.ResetBase()
}

func (b *Buffer) Destroy() {
	b.Reset()
}
