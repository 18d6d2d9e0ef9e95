package compiler

import "encoding/binary"

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// IsSPIRV reports whether code looks like a little-endian SPIR-V module.
func IsSPIRV(code []byte) bool {
	if len(code) < 20 || len(code)%4 != 0 {
		return false
	}
	return binary.LittleEndian.Uint32(code) == SPIRVMagic
}

// Words converts SPIR-V bytes to the word slice Vulkan consumes.
func Words(code []byte) []uint32 {
	words := make([]uint32, (len(code)+3)/4)
	for i := range words {
		var w [4]byte
		copy(w[:], code[i*4:])
		words[i] = binary.LittleEndian.Uint32(w[:])
	}
	return words
}
