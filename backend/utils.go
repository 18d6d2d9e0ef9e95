package backend

import (
	"fmt"
	"unsafe"
)

// AllocateMemoryFor creates memory able to host every object in objects. The
// objects must come from the same device.
func AllocateMemoryFor(flags MemoryKindFlags, objects ...DeviceObject) (DeviceMemory, error) {
	if len(objects) == 0 {
		return nil, Errorf(InvalidArguments, "AllocateMemoryFor", "no objects")
	}
	device := objects[0].Device()
	if device == nil {
		return nil, Errorf(InvalidArguments, "AllocateMemoryFor", "object %q has no device", objects[0].DebugName())
	}
	mem, err := device.CreateMemory()
	if err != nil {
		return nil, err
	}
	desc := DeviceMemoryDesc{
		Name:    fmt.Sprintf("Memory for %q", objects[0].DebugName()),
		Objects: objects,
		Flags:   flags,
	}
	if err := mem.Init(desc); err != nil {
		mem.Release()
		return nil, err
	}
	return mem, nil
}

// MapSlice maps s and views it as a []T. The view is valid until Unmap.
func MapSlice[T any](s DeviceMemorySlice) ([]T, error) {
	var zero T
	elem := uint64(unsafe.Sizeof(zero))
	if elem == 0 {
		return nil, Errorf(InvalidArguments, "MapSlice", "zero-sized element type")
	}
	ptr, err := s.Map()
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(ptr), s.Size()/elem), nil
}
