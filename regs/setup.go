package regs

import (
	"encoding/binary"
	"hash/fnv"
)

// Uniforms is the uniform register storage of the programmable vertex
// stage: boolean flags, integer vectors and float vectors.
type Uniforms struct {
	B [NumBoolUniforms]bool
	I [NumIntUniforms][4]uint8
	F [NumFloatUniforms][4]float32
}

// ShaderSetup is the per-draw setup of the programmable vertex stage: the
// uploaded program, its input swizzle patterns and the uniform storage.
type ShaderSetup struct {
	// ProgramCode is the raw instruction words of the vertex program.
	ProgramCode []uint32

	// SwizzleData is the raw operand swizzle descriptor words.
	SwizzleData []uint32

	// Uniforms is the live uniform register state.
	Uniforms Uniforms
}

// ProgramHash returns a content hash of the uploaded program code. Two
// setups carrying the same instruction words hash identically.
func (s *ShaderSetup) ProgramHash() uint64 {
	return hashWords(s.ProgramCode)
}

// SwizzleHash returns a content hash of the swizzle descriptor words.
func (s *ShaderSetup) SwizzleHash() uint64 {
	return hashWords(s.SwizzleData)
}

// hashWords computes an FNV-1a hash over a word slice. Words are fed in
// little-endian byte order so the hash does not depend on host endianness.
func hashWords(words []uint32) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, w := range words {
		binary.LittleEndian.PutUint32(buf[:], w)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
