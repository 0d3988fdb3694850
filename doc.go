// Package shadercache manages the GPU shader programs of a fixed-function
// graphics emulation pipeline.
//
// # Overview
//
// The emulated GPU has no programmable pipeline of its own; its register
// state is translated into generated shader source by external generators.
// This package owns everything between those generators and the draw call:
// it derives per-stage configuration keys from the register snapshot,
// caches generated-source stages at two levels (configuration key →
// resolution, source content hash → compiled stage), links or restores
// complete programs, and binds the right program/pipeline combination for
// each draw.
//
// # Binding models
//
// The binding model is fixed when the Manager is created:
//
//   - Separable: each stage is a separable program object, combined at
//     draw time through a shared pipeline object. Stages swap
//     independently; nothing is linked per combination.
//   - Monolithic: the three active stages are linked into one program per
//     distinct combination, cached for the process lifetime and optionally
//     persisted as driver binaries across runs (see the diskcache
//     sub-package).
//
// # Quick start
//
//	m, err := shadercache.New(dev, gens,
//	    shadercache.WithDiskCache(cacheDir, appID))
//	if err != nil {
//	    return err
//	}
//	defer m.Destroy()
//
//	// Per draw call:
//	ok, err := m.UseVertexShader(&r, &setup)
//	if err != nil {
//	    return err
//	}
//	if !ok {
//	    m.UseTrivialVertexShader()
//	}
//	if err := m.UseFixedGeometryShader(&r); err != nil {
//	    return err
//	}
//	if err := m.UseFragmentShader(&r); err != nil {
//	    return err
//	}
//	if err := m.Apply(&state); err != nil {
//	    return err
//	}
//
// # Threading
//
// A Manager belongs to the thread owning the GPU context and does no
// internal locking. Compilation and linking are synchronous driver calls.
package shadercache
