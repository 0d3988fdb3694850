package shadercache

import (
	"hash/fnv"

	"github.com/gogpu/shadercache/regs"
)

// Configuration keys snapshot exactly the register fields that influence a
// stage's generated source. Two registers snapshots with the same
// source-affecting content build bit-identical keys; anything else is a
// correctness bug, because a resolution recorded for a key hash is never
// re-derived.
//
// Keys are plain comparable structs built fresh per draw call and not
// retained; only their hashes live in the caches.

// VertexKey is the configuration key of the programmable vertex stage.
type VertexKey struct {
	// ProgramHash and SwizzleHash identify the uploaded vertex program.
	ProgramHash uint64
	SwizzleHash uint64

	// EntryPoint is the instruction offset execution starts at.
	EntryPoint uint32

	// OutputMask marks which output registers the program writes.
	OutputMask uint32
}

// NewVertexKey builds the vertex configuration key from the register
// snapshot and the per-draw shader setup.
func NewVertexKey(r *regs.Regs, setup *regs.ShaderSetup) VertexKey {
	return VertexKey{
		ProgramHash: setup.ProgramHash(),
		SwizzleHash: setup.SwizzleHash(),
		EntryPoint:  r.VertexShader.EntryPoint,
		OutputMask:  r.VertexShader.OutputMask,
	}
}

// Hash returns the 64-bit lookup hash of the key.
func (k VertexKey) Hash() uint64 {
	h := fnv.New64a()
	hashWriteUint64(h, k.ProgramHash)
	hashWriteUint64(h, k.SwizzleHash)
	hashWriteUint32(h, k.EntryPoint)
	hashWriteUint32(h, k.OutputMask)
	return h.Sum64()
}

// GeometryKey is the configuration key of the fixed-function geometry
// emulation stage.
type GeometryKey struct {
	// OutputTotal is the number of vertex attributes entering the stage.
	OutputTotal uint32

	// Semantics is the attribute slot semantic map.
	Semantics [regs.NumOutputAttributes]uint8
}

// NewGeometryKey builds the geometry configuration key from the register
// snapshot.
func NewGeometryKey(r *regs.Regs) GeometryKey {
	return GeometryKey{
		OutputTotal: r.Geometry.OutputTotal,
		Semantics:   r.Geometry.Semantics,
	}
}

// Hash returns the 64-bit lookup hash of the key.
func (k GeometryKey) Hash() uint64 {
	h := fnv.New64a()
	hashWriteUint32(h, k.OutputTotal)
	_, _ = h.Write(k.Semantics[:])
	return h.Sum64()
}

// FragmentKey is the configuration key of the fragment stage. It flattens
// the texturing, combiner, alpha test, fog and lighting registers into a
// fixed-size value.
type FragmentKey struct {
	TexTypes  [regs.NumTexUnits]regs.TexType
	Combiners [regs.NumCombinerStages]regs.CombinerStage

	// AlphaTestFunc is CompareAlways when the test is disabled, so disabled
	// tests with differing reference functions share one key.
	AlphaTestFunc regs.CompareFunc

	FogMode      regs.FogMode
	FogFlipDepth bool

	LightingEnabled bool
	LightCount      uint8
	ShadowEnabled   bool
}

// NewFragmentKey builds the fragment configuration key from the register
// snapshot.
func NewFragmentKey(r *regs.Regs) FragmentKey {
	k := FragmentKey{
		Combiners:       r.Combiners,
		AlphaTestFunc:   regs.CompareAlways,
		FogMode:         r.Fog.Mode,
		FogFlipDepth:    r.Fog.FlipDepth,
		LightingEnabled: r.Lighting.Enabled,
		ShadowEnabled:   r.Lighting.ShadowEnabled,
	}
	for i, unit := range r.Texturing {
		k.TexTypes[i] = unit.Type
	}
	if r.AlphaTest.Enabled {
		k.AlphaTestFunc = r.AlphaTest.Func
	}
	if r.Lighting.Enabled {
		k.LightCount = r.Lighting.LightCount
	}
	return k
}

// Hash returns the 64-bit lookup hash of the key.
func (k FragmentKey) Hash() uint64 {
	h := fnv.New64a()
	for _, t := range k.TexTypes {
		_, _ = h.Write([]byte{uint8(t)})
	}
	for i := range k.Combiners {
		c := &k.Combiners[i]
		_, _ = h.Write(c.ColorSources[:])
		_, _ = h.Write(c.AlphaSources[:])
		_, _ = h.Write(c.ColorMods[:])
		_, _ = h.Write(c.AlphaMods[:])
		_, _ = h.Write([]byte{c.ColorOp, c.AlphaOp, c.ColorScale, c.AlphaScale})
	}
	_, _ = h.Write([]byte{uint8(k.AlphaTestFunc), uint8(k.FogMode)})
	hashWriteBool(h, k.FogFlipDepth)
	hashWriteBool(h, k.LightingEnabled)
	_, _ = h.Write([]byte{k.LightCount})
	hashWriteBool(h, k.ShadowEnabled)
	return h.Sum64()
}
