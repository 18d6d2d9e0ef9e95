package vulkan

import (
	"unsafe"

	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/internal/logging"
	vk "github.com/vulkan-go/vulkan"
)

// memoryPropertyFlags maps memory kinds to the Vulkan properties requested
// from the allocator. Host accessible memory is always coherent.
func memoryPropertyFlags(kind backend.MemoryKindFlags) (vk.MemoryPropertyFlags, bool) {
	switch {
	case kind.Has(backend.HostAccessible):
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit), true
	case kind.Has(backend.DeviceAccessible):
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), true
	}
	return 0, false
}

type DeviceMemory struct {
	backend.DeviceObjectBase[backend.DeviceMemoryDesc]
	native    vk.DeviceMemory
	typeIndex uint32
	mapped    bool
}

func (m *DeviceMemory) Init(desc backend.DeviceMemoryDesc) error {
	m.Reset()
	desc.Objects = append([]backend.DeviceObject(nil), desc.Objects...)
	m.InitBase(desc.Name, desc)
	return m.FinishInit(m.allocate(desc))
}

func (m *DeviceMemory) allocate(desc backend.DeviceMemoryDesc) error {
	const op = "DeviceMemory.Init"
	if len(desc.Objects) == 0 {
		return backend.Errorf(backend.InvalidArguments, op, "memory %q must host at least one object", desc.Name)
	}
	device := native(m.Device())
	if device == nil || !device.initialized() {
		return notInitialized(op)
	}

	reqs := make([]backend.MemoryRequirements, 0, len(desc.Objects))
	for _, obj := range desc.Objects {
		if obj == nil || native(obj.Device()) != device {
			return backend.Errorf(backend.InvalidArguments, op, "object was not created by the device of %q", desc.Name)
		}
		requirer, ok := obj.(backend.MemoryRequirer)
		if !ok {
			return backend.Errorf(backend.InvalidArguments, op, "object %q cannot be placed in memory", obj.DebugName())
		}
		reqs = append(reqs, requirer.MemoryRequirements())
	}

	typeBits := backend.CommonTypeBits(reqs)
	if typeBits == 0 {
		return backend.Errorf(backend.InvalidArguments, op, "objects in %q have incompatible memory requirements", desc.Name)
	}
	props, ok := memoryPropertyFlags(desc.Flags)
	if !ok {
		return backend.Errorf(backend.InvalidArguments, op, "invalid memory kind %s", desc.Flags)
	}
	typeIndex, err := device.FindMemoryType(typeBits, props)
	if err != nil {
		return err
	}

	size := backend.RequiredSize(desc.Size, reqs)
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(device.handle, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	if isError(ret) {
		err := newError("vkAllocateMemory", ret)
		logging.For("vulkan").WithError(err).WithField("size", size).Error("couldn't allocate Vulkan device memory")
		return err
	}
	m.native = mem
	m.typeIndex = typeIndex
	desc.Size = size
	m.SetDesc(desc)
	return nil
}

func (m *DeviceMemory) Map(offset, size uint64) (unsafe.Pointer, error) {
	const op = "DeviceMemory.Map"
	if !m.Initialized() {
		return nil, notInitialized(op)
	}
	desc := m.Desc()
	if !desc.Flags.Has(backend.HostAccessible) {
		return nil, backend.Errorf(backend.InvalidOperation, op, "memory %q is not host accessible", desc.Name)
	}
	if size == backend.WholeSize && offset <= desc.Size {
		size = desc.Size - offset
	}
	if offset > desc.Size || size > desc.Size-offset {
		return nil, backend.Errorf(backend.InvalidArguments, op,
			"range [%d, %d+%d) exceeds %d byte allocation", offset, offset, size, desc.Size)
	}

	m.Unmap()
	var data unsafe.Pointer
	ret := vk.MapMemory(native(m.Device()).handle, m.native, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &data)
	if isError(ret) {
		return nil, newError("vkMapMemory", ret)
	}
	m.mapped = true
	return data, nil
}

func (m *DeviceMemory) Unmap() {
	if !m.mapped {
		return
	}
	m.mapped = false
	vk.UnmapMemory(native(m.Device()).handle, m.native)
}

func (m *DeviceMemory) IsCompatible(obj backend.DeviceObject) bool {
	return m.IsCompatibleWithin(obj, m.Desc().Size)
}

// IsCompatibleWithin reports whether obj fits in sizeLimit bytes of this
// memory and accepts its memory type.
func (m *DeviceMemory) IsCompatibleWithin(obj backend.DeviceObject, sizeLimit uint64) bool {
	requirer, ok := obj.(backend.MemoryRequirer)
	if !ok || !m.Initialized() {
		return false
	}
	req := requirer.MemoryRequirements()
	return req.Size <= sizeLimit && backend.SupportsType(req.TypeBits, m.typeIndex)
}

func (m *DeviceMemory) Reset() {
	if !isNull(m.native) {
		m.Unmap()
		vk.FreeMemory(native(m.Device()).handle, m.native, nil)
		m.native = nil
	}
	m.typeIndex = 0
	m.ResetBase()
}

func (m *DeviceMemory) Destroy() {
	m.Reset()
}
