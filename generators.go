package shadercache

import "github.com/gogpu/shadercache/regs"

// Source generators translate configuration keys into shader source text.
// They live outside this package (the manager treats them as opaque pure
// functions) and must be deterministic: the caches assume a key resolves to
// the same source forever.

// VertexSourceFunc generates vertex shader source for a configuration. An
// empty result is a valid outcome meaning the configuration needs no
// programmable vertex stage; the caller then selects the trivial vertex
// stage instead.
type VertexSourceFunc func(setup *regs.ShaderSetup, key VertexKey, separable bool) string

// GeometrySourceFunc generates the fixed-function geometry emulation
// source for a configuration. It never returns empty source.
type GeometrySourceFunc func(key GeometryKey, separable bool) string

// FragmentSourceFunc generates fragment shader source for a configuration.
// It never returns empty source.
type FragmentSourceFunc func(key FragmentKey, separable bool) string

// TrivialVertexSourceFunc generates the pass-through vertex shader used
// when a configuration has no programmable vertex stage.
type TrivialVertexSourceFunc func(separable bool) string

// Generators bundles the source generators a Manager consumes. All four
// fields are required.
type Generators struct {
	Vertex        VertexSourceFunc
	Geometry      GeometrySourceFunc
	Fragment      FragmentSourceFunc
	TrivialVertex TrivialVertexSourceFunc
}

// complete reports whether every generator is present.
func (g Generators) complete() bool {
	return g.Vertex != nil && g.Geometry != nil && g.Fragment != nil && g.TrivialVertex != nil
}
