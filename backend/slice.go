package backend

import "unsafe"

// WholeSize selects everything from the offset to the end of the allocation.
const WholeSize = ^uint64(0)

// DeviceMemorySlice is a (memory, offset, size) view of a DeviceMemory. It does
// not own a reference to the memory.
type DeviceMemorySlice struct {
	memory DeviceMemory
	offset uint64
	size   uint64
}

// NewDeviceMemorySlice validates that [offset, offset+size) lies inside mem.
// A size of WholeSize extends the slice to the end of the allocation.
func NewDeviceMemorySlice(mem DeviceMemory, offset, size uint64) (DeviceMemorySlice, error) {
	if mem == nil {
		return DeviceMemorySlice{}, Errorf(InvalidArguments, "NewDeviceMemorySlice", "memory is nil")
	}
	total := mem.Desc().Size
	if offset > total {
		return DeviceMemorySlice{}, Errorf(InvalidArguments, "NewDeviceMemorySlice",
			"offset %d is outside of %d byte allocation", offset, total)
	}
	if size == WholeSize {
		size = total - offset
	}
	if size > total-offset {
		return DeviceMemorySlice{}, Errorf(InvalidArguments, "NewDeviceMemorySlice",
			"range [%d, %d+%d) exceeds %d byte allocation", offset, offset, size, total)
	}
	return DeviceMemorySlice{memory: mem, offset: offset, size: size}, nil
}

// WholeMemory returns a slice covering all of mem.
func WholeMemory(mem DeviceMemory) DeviceMemorySlice {
	if mem == nil {
		return DeviceMemorySlice{}
	}
	return DeviceMemorySlice{memory: mem, size: mem.Desc().Size}
}

func (s DeviceMemorySlice) Memory() DeviceMemory {
	return s.memory
}

func (s DeviceMemorySlice) Offset() uint64 {
	return s.offset
}

func (s DeviceMemorySlice) Size() uint64 {
	return s.size
}

func (s DeviceMemorySlice) IsNil() bool {
	return s.memory == nil
}

// Map maps the whole slice.
func (s DeviceMemorySlice) Map() (unsafe.Pointer, error) {
	return s.MapRange(0, s.size)
}

// MapRange maps [offset, offset+size) relative to the start of the slice.
func (s DeviceMemorySlice) MapRange(offset, size uint64) (unsafe.Pointer, error) {
	if s.memory == nil {
		return nil, Errorf(InvalidOperation, "DeviceMemorySlice.Map", "slice has no memory")
	}
	if size == WholeSize && offset <= s.size {
		size = s.size - offset
	}
	if offset > s.size || size > s.size-offset {
		return nil, Errorf(InvalidArguments, "DeviceMemorySlice.Map",
			"range [%d, %d+%d) exceeds %d byte slice", offset, offset, size, s.size)
	}
	return s.memory.Map(s.offset+offset, size)
}

// Unmap is idempotent and safe on a nil slice.
func (s DeviceMemorySlice) Unmap() {
	if s.memory != nil {
		s.memory.Unmap()
	}
}

// IsCompatible reports whether obj fits in this slice.
func (s DeviceMemorySlice) IsCompatible(obj DeviceObject) bool {
	return s.memory != nil && s.memory.IsCompatibleWithin(obj, s.size)
}
