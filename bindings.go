package shadercache

import (
	"fmt"

	"github.com/gogpu/shadercache/driver"
)

// Uniform block binding points shared by every generated shader.
const (
	// bindingCommon is the binding point of the per-draw common data block.
	bindingCommon uint32 = 0

	// bindingVS is the binding point of the vertex uniform register block.
	bindingVS uint32 = 1
)

// Uniform block names emitted by the source generators.
const (
	commonBlockName = "common_data"
	vsBlockName     = "vs_data"
)

// samplerBindings maps fragment sampler uniforms to fixed texture units.
// Units 0-2 are the fixed-function texture units, 3-5 the lookup table
// buffers, 6 the cube map.
var samplerBindings = []struct {
	name string
	unit int32
}{
	{"tex0", 0},
	{"tex1", 1},
	{"tex2", 2},
	{"lut_lf", 3},
	{"lut_rg", 4},
	{"lut_rgba", 5},
	{"tex_cube", 6},
}

// imageBindings maps fragment image uniforms to fixed image units: the
// shadow accumulation buffer and the six shadow cube faces.
var imageBindings = []struct {
	name string
	unit int32
}{
	{"shadow_buffer", 0},
	{"shadow_texture_px", 1},
	{"shadow_texture_nx", 2},
	{"shadow_texture_py", 3},
	{"shadow_texture_ny", 4},
	{"shadow_texture_pz", 5},
	{"shadow_texture_nz", 6},
}

// setUniformBlockBindings wires the common and vertex uniform blocks of a
// freshly created program to their fixed binding points. Blocks the
// generator omitted (or the compiler optimized out) are skipped.
func setUniformBlockBindings(dev driver.Device, program driver.ProgramID) {
	setUniformBlockBinding(dev, program, commonBlockName, bindingCommon, CommonBlockSize)
	setUniformBlockBinding(dev, program, vsBlockName, bindingVS, VSBlockSize)
}

// setUniformBlockBinding binds one named uniform block, validating its size
// against the layout the renderer uploads. A size mismatch means the
// generator and the uniform marshalling code disagree about the block
// layout; that is a bug, not a runtime condition.
func setUniformBlockBinding(dev driver.Device, program driver.ProgramID, name string, binding uint32, expectedSize int) {
	index, ok := dev.UniformBlockIndex(program, name)
	if !ok {
		return
	}
	if size := dev.UniformBlockSize(program, index); size != expectedSize {
		panic(fmt.Sprintf("shadercache: uniform block %q size mismatch: got %d, expected %d", name, size, expectedSize))
	}
	dev.BindUniformBlock(program, index, binding)
}

// setSamplerBindings points the sampler and image uniforms of a fragment
// program at their fixed units. Uniforms absent from the generated source
// are skipped.
func setSamplerBindings(dev driver.Device, program driver.ProgramID) {
	for _, b := range samplerBindings {
		if loc, ok := dev.UniformLocation(program, b.name); ok {
			dev.SetUniformInt(program, loc, b.unit)
		}
	}
	for _, b := range imageBindings {
		if loc, ok := dev.UniformLocation(program, b.name); ok {
			dev.SetUniformInt(program, loc, b.unit)
		}
	}
}
