package shadercache

import "github.com/gogpu/shadercache/regs"

// Expected uniform block data sizes, validated against the sizes the driver
// reports for the generated source. Both blocks use std140 layout.
const (
	// CommonBlockSize is the size of the common_data block holding the
	// per-draw fixed-function state (combiner constants, fog and alpha
	// test parameters, lighting data). The renderer owns its layout; the
	// size is fixed by the source generators.
	CommonBlockSize = 512

	// VSBlockSize is the size of the vs_data block, the marshalled form of
	// VSUniforms below: 16 bool registers and 4 int registers padded to
	// 16-byte stride, plus 96 vec4 float registers.
	VSBlockSize = 16*16 + 4*16 + 96*16
)

// VSUniforms is the std140 image of the vertex uniform register file, as
// the generated vertex shader's vs_data block expects it. Bool and int
// registers occupy a full 16-byte slot each to satisfy std140 array stride
// rules.
type VSUniforms struct {
	Bools  [regs.NumBoolUniforms][4]uint32
	Ints   [regs.NumIntUniforms][4]uint32
	Floats [regs.NumFloatUniforms][4]float32
}

// SetFromSetup fills the block from the live uniform registers of a shader
// setup. Bools map to 1/0 in the first component of their slot.
func (u *VSUniforms) SetFromSetup(setup *regs.ShaderSetup) {
	for i, b := range setup.Uniforms.B {
		u.Bools[i] = [4]uint32{}
		if b {
			u.Bools[i][0] = 1
		}
	}
	for i, v := range setup.Uniforms.I {
		u.Ints[i] = [4]uint32{uint32(v[0]), uint32(v[1]), uint32(v[2]), uint32(v[3])}
	}
	u.Floats = setup.Uniforms.F
}
