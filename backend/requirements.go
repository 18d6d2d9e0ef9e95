package backend

// MemoryRequirements are the placement constraints a backend reports for one
// object.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

// AlignUp rounds size up to a multiple of alignment. Alignments of 0 or 1
// leave size unchanged.
func AlignUp(size, alignment uint64) uint64 {
	if alignment <= 1 {
		return size
	}
	return (size + alignment - 1) / alignment * alignment
}

// CommonTypeBits intersects the memory type bits of every requirement.
func CommonTypeBits(reqs []MemoryRequirements) uint32 {
	if len(reqs) == 0 {
		return 0
	}
	typeBits := ^uint32(0)
	for _, r := range reqs {
		typeBits &= r.TypeBits
	}
	return typeBits
}

// RequiredSize returns max(requested, sum of aligned requirement sizes).
func RequiredSize(requested uint64, reqs []MemoryRequirements) uint64 {
	var total uint64
	for _, r := range reqs {
		total = AlignUp(total, r.Alignment) + r.Size
	}
	return max(requested, total)
}

// SupportsType reports whether memory type index is allowed by typeBits.
func SupportsType(typeBits uint32, index uint32) bool {
	return index < 32 && typeBits&(1<<index) != 0
}
