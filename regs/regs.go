// Package regs models the register state of the emulated fixed-function
// graphics processor, reduced to the fields that influence generated shader
// source.
//
// The manager snapshots these registers into per-stage configuration keys
// (see the shadercache package); the full register file of the emulated GPU
// lives in the core emulator and is out of scope here.
package regs

// Fixed capacities of the emulated GPU.
const (
	// NumTexUnits is the number of fixed-function texture units.
	NumTexUnits = 3

	// NumCombinerStages is the number of texture combiner stages.
	NumCombinerStages = 6

	// NumFloatUniforms is the number of vec4 float uniform registers
	// available to the programmable vertex stage.
	NumFloatUniforms = 96

	// NumBoolUniforms is the number of boolean uniform registers.
	NumBoolUniforms = 16

	// NumIntUniforms is the number of ivec4 integer uniform registers.
	NumIntUniforms = 4

	// NumOutputAttributes is the maximum number of vertex output
	// attributes forwarded to the geometry/rasterizer stage.
	NumOutputAttributes = 8
)

// CompareFunc is a fragment test comparison function.
type CompareFunc uint8

// Comparison functions, matching the hardware encoding.
const (
	CompareNever CompareFunc = iota
	CompareAlways
	CompareEqual
	CompareNotEqual
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
)

// FogMode selects the fog pipeline of the emulated GPU.
type FogMode uint8

// Fog modes.
const (
	FogNone FogMode = iota
	FogLinear
	FogExp
)

// TexType is the sampling mode of a texture unit.
type TexType uint8

// Texture unit types. TexDisabled means the unit contributes nothing to the
// generated fragment source.
const (
	TexDisabled TexType = iota
	Tex2D
	TexCube
	TexShadow2D
	TexProjection
)

// TexUnit is the configuration of one fixed-function texture unit.
type TexUnit struct {
	Type TexType
}

// Enabled reports whether the unit samples anything.
func (u TexUnit) Enabled() bool { return u.Type != TexDisabled }

// CombinerStage is one stage of the texture environment combiner. Sources,
// modifiers and operations use the raw hardware encodings; the source
// generator interprets them.
type CombinerStage struct {
	ColorSources [3]uint8
	AlphaSources [3]uint8
	ColorMods    [3]uint8
	AlphaMods    [3]uint8
	ColorOp      uint8
	AlphaOp      uint8
	ColorScale   uint8
	AlphaScale   uint8
}

// AlphaTest is the fragment alpha test configuration.
type AlphaTest struct {
	Enabled bool
	Func    CompareFunc
	Ref     uint8
}

// Fog is the fog configuration.
type Fog struct {
	Mode      FogMode
	FlipDepth bool
}

// Lighting is the subset of the lighting configuration that alters the
// generated fragment source. Per-light colors and positions are uniforms
// and do not belong in a configuration key.
type Lighting struct {
	Enabled       bool
	LightCount    uint8
	ShadowEnabled bool
}

// ShaderConfig is the programmable vertex shader control register block.
type ShaderConfig struct {
	// EntryPoint is the instruction offset the program starts at.
	EntryPoint uint32

	// OutputMask marks which output registers the program writes.
	OutputMask uint32
}

// GeometryConfig is the fixed-function geometry emulation control block.
type GeometryConfig struct {
	// OutputTotal is the number of vertex output attributes forwarded to
	// the geometry stage.
	OutputTotal uint32

	// Semantics maps output attribute slots to their semantic (position,
	// color, texture coordinate, ...), using the hardware encoding.
	Semantics [NumOutputAttributes]uint8
}

// Regs is the snapshot of the emulated GPU registers the shader manager
// reads. It is copied out of the emulated register file once per draw call.
type Regs struct {
	Texturing    [NumTexUnits]TexUnit
	Combiners    [NumCombinerStages]CombinerStage
	AlphaTest    AlphaTest
	Fog          Fog
	Lighting     Lighting
	VertexShader ShaderConfig
	Geometry     GeometryConfig
}
