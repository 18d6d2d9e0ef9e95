package backend

import (
	"errors"
	"testing"
)

func TestCommonTypeBits(t *testing.T) {
	tests := []struct {
		name string
		reqs []MemoryRequirements
		want uint32
	}{
		{"empty", nil, 0},
		{"single", []MemoryRequirements{{TypeBits: 0b1011}}, 0b1011},
		{"overlap", []MemoryRequirements{{TypeBits: 0b1011}, {TypeBits: 0b0110}}, 0b0010},
		{"disjoint", []MemoryRequirements{{TypeBits: 0b0001}, {TypeBits: 0b0100}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommonTypeBits(tt.reqs); got != tt.want {
				t.Errorf("CommonTypeBits() = %b, want %b", got, tt.want)
			}
		})
	}
}

func TestRequiredSize(t *testing.T) {
	reqs := []MemoryRequirements{
		{Size: 100, Alignment: 64},
		{Size: 10, Alignment: 64},
	}
	if got := RequiredSize(0, reqs); got != 138 {
		t.Errorf("RequiredSize(0) = %d, want 138", got)
	}
	if got := RequiredSize(4096, reqs); got != 4096 {
		t.Errorf("requested size should win when larger, got %d", got)
	}
	if got := AlignUp(5, 0); got != 5 {
		t.Errorf("AlignUp with zero alignment = %d", got)
	}
}

func TestDeviceMemorySliceBounds(t *testing.T) {
	mem := newHostMemory(256, HostAndDeviceAccessible)

	if _, err := NewDeviceMemorySlice(mem, 128, 129); CodeOf(err) != InvalidArguments {
		t.Fatalf("slice past the end should be rejected, got %v", err)
	}
	if _, err := NewDeviceMemorySlice(mem, 300, 0); CodeOf(err) != InvalidArguments {
		t.Fatalf("offset past the end should be rejected, got %v", err)
	}

	s, err := NewDeviceMemorySlice(mem, 128, WholeSize)
	if err != nil {
		t.Fatalf("NewDeviceMemorySlice: %v", err)
	}
	if s.Size() != 128 || s.Offset() != 128 {
		t.Fatalf("unexpected slice %d+%d", s.Offset(), s.Size())
	}
	if _, err := s.MapRange(64, 65); CodeOf(err) != InvalidArguments {
		t.Fatalf("mapping past the slice should fail, got %v", err)
	}
}

func TestUnmapIsIdempotent(t *testing.T) {
	mem := newHostMemory(64, HostAccessible)
	s := WholeMemory(mem)

	s.Unmap()
	if _, err := s.Map(); err != nil {
		t.Fatalf("Map: %v", err)
	}
	s.Unmap()
	s.Unmap()
	if mem.unmaps != 1 {
		t.Fatalf("expected a single effective unmap, got %d", mem.unmaps)
	}

	var empty DeviceMemorySlice
	empty.Unmap()
}

func TestMapSliceRoundTrip(t *testing.T) {
	mem := newHostMemory(32*4, HostAccessible)
	s := WholeMemory(mem)

	values, err := MapSlice[uint32](s)
	if err != nil {
		t.Fatalf("MapSlice: %v", err)
	}
	if len(values) != 32 {
		t.Fatalf("expected 32 elements, got %d", len(values))
	}
	for i := range values {
		values[i] = uint32(i)
	}
	s.Unmap()

	again, err := MapSlice[uint32](s)
	if err != nil {
		t.Fatalf("MapSlice: %v", err)
	}
	defer s.Unmap()
	for i, v := range again {
		if v != uint32(i) {
			t.Fatalf("element %d = %d", i, v)
		}
	}
}

func TestMapRequiresHostAccess(t *testing.T) {
	mem := newHostMemory(64, DeviceAccessible)
	if _, err := WholeMemory(mem).Map(); !errors.Is(err, InvalidOperation) {
		t.Fatalf("mapping device-only memory should fail, got %v", err)
	}
}

func TestSliceCompatibility(t *testing.T) {
	mem := newHostMemory(256, HostAndDeviceAccessible)
	small := &sizedObject{req: MemoryRequirements{Size: 64, TypeBits: 1}}
	large := &sizedObject{req: MemoryRequirements{Size: 200, TypeBits: 1}}
	wrongType := &sizedObject{req: MemoryRequirements{Size: 16, TypeBits: 2}}

	s, _ := NewDeviceMemorySlice(mem, 128, 128)
	if !s.IsCompatible(small) {
		t.Errorf("64 byte object should fit a 128 byte slice")
	}
	if s.IsCompatible(large) {
		t.Errorf("200 byte object must not fit a 128 byte slice")
	}
	if !mem.IsCompatible(large) {
		t.Errorf("200 byte object should fit the whole allocation")
	}
	if s.IsCompatible(wrongType) {
		t.Errorf("type bits without intersection must be incompatible")
	}
}
