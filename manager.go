package shadercache

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/shadercache/diskcache"
	"github.com/gogpu/shadercache/driver"
	"github.com/gogpu/shadercache/regs"
)

// Manager errors.
var (
	// ErrNilDevice is returned when creating a Manager without a device.
	ErrNilDevice = errors.New("shadercache: device is nil")

	// ErrMissingGenerator is returned when creating a Manager with an
	// incomplete generator set.
	ErrMissingGenerator = errors.New("shadercache: missing source generator")
)

// Manager translates the emulated GPU's register state into bound shader
// programs, caching aggressively at two levels:
//
//  1. configuration-key hash → resolved stage (skips source generation for
//     repeated configurations);
//  2. source content hash → compiled stage (deduplicates identical
//     generated code across configurations).
//
// In monolithic mode a third cache maps stage combinations to linked
// programs, optionally backed by a persistent program-binary store that
// survives process restarts.
//
// A Manager is bound to the thread owning the GPU context. It performs no
// internal locking; all methods must be called from that thread. Caches
// grow monotonically for the Manager's lifetime — shader counts per title
// are bounded in practice, so there is no eviction.
type Manager struct {
	dev  driver.Device
	log  *slog.Logger
	gens Generators

	separable    bool
	rebindStages bool

	// pipeline is the shared pipeline object, separable mode only.
	pipeline driver.PipelineID

	// Trivial singletons, constructed once and never cached by hash. The
	// trivial geometry stage is an empty stage: its zero handle detaches
	// the geometry slot.
	trivialVertex   *Stage
	trivialGeometry *Stage

	// resolved maps configuration-key hashes to their stage resolution.
	// A present nil entry records "no programmable vertex stage for this
	// configuration". Entries are never invalidated.
	resolved map[uint64]*Stage

	// stages owns the compiled stage objects, keyed by source content hash
	// (vertex, fragment) or configuration-key hash (geometry).
	stages map[uint64]*Stage

	// programs caches linked programs by stage-combination hash,
	// monolithic mode only.
	programs map[uint64]driver.ProgramID

	// store persists program binaries across runs; nil unless monolithic
	// mode with persistence enabled.
	store *diskcache.Store

	// current is the active stage set for the in-progress draw call.
	// Last-write-wins; consumed by Apply.
	current struct {
		vs, gs, fs *Stage
	}

	hits, misses uint64
}

// New creates a Manager over the given device and source generators.
//
// The binding model, driver workarounds and persistence are chosen through
// options and fixed for the Manager's lifetime. In separable mode the
// shared pipeline object is created here; in monolithic mode with
// persistence enabled the program-binary store is loaded here. The trivial
// vertex stage is compiled eagerly so stage selection never fails later.
func New(dev driver.Device, gens Generators, opts ...Option) (*Manager, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if !gens.complete() {
		return nil, ErrMissingGenerator
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		dev:          dev,
		log:          Logger(),
		gens:         gens,
		separable:    o.separable,
		rebindStages: o.rebindStages,
		resolved:     make(map[uint64]*Stage),
		stages:       make(map[uint64]*Stage),
	}

	if m.separable {
		pipeline, err := dev.CreatePipeline()
		if err != nil {
			return nil, fmt.Errorf("create pipeline object: %w", err)
		}
		m.pipeline = pipeline
	} else {
		m.programs = make(map[uint64]driver.ProgramID)
		if o.diskCache {
			m.store = diskcache.Open(diskcache.FilePath(o.cacheDir, o.appID), m.log)
		}
	}

	m.trivialVertex = newStage(m.separable)
	if err := m.trivialVertex.create(dev, gens.TrivialVertex(m.separable), driver.StageVertex, 0); err != nil {
		m.dev.DeletePipeline(m.pipeline)
		return nil, fmt.Errorf("create trivial vertex stage: %w", err)
	}
	m.trivialGeometry = newStage(m.separable)

	return m, nil
}

// UseVertexShader resolves the programmable vertex stage for the given
// register snapshot and shader setup, and selects it as the active vertex
// stage.
//
// It returns false when the configuration's generated source is empty,
// meaning no programmable vertex stage should be used; the caller must then
// select the trivial stage via UseTrivialVertexShader before Apply. That
// outcome is cached like any other resolution.
func (m *Manager) UseVertexShader(r *regs.Regs, setup *regs.ShaderSetup) (bool, error) {
	key := NewVertexKey(r, setup)
	keyHash := key.Hash()

	if stage, ok := m.resolved[keyHash]; ok {
		m.hits++
		m.current.vs = stage
		return stage != nil, nil
	}
	m.misses++

	source := m.gens.Vertex(setup, key, m.separable)
	if source == "" {
		m.log.Debug("configuration has no programmable vertex stage", "key", keyHash)
		m.resolved[keyHash] = nil
		m.current.vs = nil
		return false, nil
	}

	stage, err := m.getOrCompile(hashString(source), source, driver.StageVertex)
	if err != nil {
		return false, err
	}
	m.resolved[keyHash] = stage
	m.current.vs = stage
	return true, nil
}

// UseFixedGeometryShader resolves the fixed-function geometry emulation
// stage for the given register snapshot and selects it as the active
// geometry stage.
//
// Geometry stages are cached by configuration-key hash directly, without
// the content-hash indirection vertex and fragment stages get: generation
// is cheap and distinct keys rarely collide on output.
func (m *Manager) UseFixedGeometryShader(r *regs.Regs) error {
	key := NewGeometryKey(r)
	keyHash := key.Hash()

	stage, ok := m.stages[keyHash]
	if !ok {
		m.misses++
		source := m.gens.Geometry(key, m.separable)
		stage = newStage(m.separable)
		if err := stage.create(m.dev, source, driver.StageGeometry, keyHash); err != nil {
			stage.destroy(m.dev)
			return err
		}
		m.log.Debug("compiled geometry stage", "key", keyHash)
		m.stages[keyHash] = stage
	} else {
		m.hits++
	}

	m.current.gs = stage
	return nil
}

// UseFragmentShader resolves the fragment stage for the given register
// snapshot and selects it as the active fragment stage. Fragment
// generation never yields empty source.
func (m *Manager) UseFragmentShader(r *regs.Regs) error {
	key := NewFragmentKey(r)
	keyHash := key.Hash()

	if stage, ok := m.resolved[keyHash]; ok {
		m.hits++
		m.current.fs = stage
		return nil
	}
	m.misses++

	source := m.gens.Fragment(key, m.separable)
	stage, err := m.getOrCompile(hashString(source), source, driver.StageFragment)
	if err != nil {
		return err
	}
	m.resolved[keyHash] = stage
	m.current.fs = stage
	return nil
}

// UseTrivialVertexShader selects the pass-through vertex stage, bypassing
// all caching. Call it after UseVertexShader reports that the current
// configuration has no programmable vertex stage.
func (m *Manager) UseTrivialVertexShader() {
	m.current.vs = m.trivialVertex
}

// UseTrivialGeometryShader selects the empty geometry stage, bypassing all
// caching. Its zero handle disables the geometry slot.
func (m *Manager) UseTrivialGeometryShader() {
	m.current.gs = m.trivialGeometry
}

// Apply binds the active stage set for the next draw call and publishes
// the result to state: the pipeline object in separable mode, the linked
// program in monolithic mode (the other field is zeroed).
//
// Every stage slot must have been selected first; a configuration without
// a programmable vertex stage must have been substituted with the trivial
// stage. Calling Apply with an unresolved slot is a usage-contract
// violation and panics.
func (m *Manager) Apply(state *driver.RenderState) error {
	if m.current.vs == nil || m.current.gs == nil || m.current.fs == nil {
		panic("shadercache: Apply with unresolved stage; select all three stages (or their trivial fallbacks) first")
	}

	if m.separable {
		m.applySeparable(state)
		return nil
	}
	return m.applyMonolithic(state)
}

// applySeparable rebinds the pipeline stage slots to the active separable
// programs.
func (m *Manager) applySeparable(state *driver.RenderState) {
	if m.rebindStages {
		// Some drivers miscache pipeline stage state when only a subset of
		// slots changes between draws; detach everything first.
		m.dev.ClearPipelineStages(m.pipeline)
	}
	m.dev.BindPipelineStage(m.pipeline, driver.StageVertex, m.current.vs.Program())
	m.dev.BindPipelineStage(m.pipeline, driver.StageGeometry, m.current.gs.Program())
	m.dev.BindPipelineStage(m.pipeline, driver.StageFragment, m.current.fs.Program())

	state.Program = 0
	state.Pipeline = m.pipeline
}

// applyMonolithic looks up or builds the linked program for the active
// stage combination.
func (m *Manager) applyMonolithic(state *driver.RenderState) error {
	comboHash := programHash(m.current.vs.Hash(), m.current.gs.Hash(), m.current.fs.Hash())

	program, ok := m.programs[comboHash]
	if !ok {
		var err error
		program, err = m.buildProgram(comboHash)
		if err != nil {
			return err
		}
		setUniformBlockBindings(m.dev, program)
		setSamplerBindings(m.dev, program)
		m.programs[comboHash] = program
	}

	state.Program = program
	state.Pipeline = 0
	return nil
}

// buildProgram materializes a linked program for a stage combination:
// first from the persisted binary store, then by linking from the live
// stage objects. A driver-rejected binary invalidates the whole store (one
// bad blob means the store predates the current driver) and linking
// proceeds from source.
func (m *Manager) buildProgram(comboHash uint64) (driver.ProgramID, error) {
	if m.store != nil {
		if entry, ok := m.store.Lookup(comboHash); ok {
			program, err := m.dev.InstallBinary(entry.Format, entry.Data)
			if err == nil {
				m.log.Debug("program restored from binary store", "key", comboHash)
				return program, nil
			}
			m.log.Warn("persisted program binary rejected, discarding store",
				"key", comboHash, "err", err)
			m.store.Discard()
		}
	}

	shaders := make([]driver.ShaderID, 0, 3)
	for _, s := range []*Stage{m.current.vs, m.current.gs, m.current.fs} {
		if s.Shader() != 0 {
			shaders = append(shaders, s.Shader())
		}
	}

	program, err := m.dev.LinkProgram(false, shaders...)
	if err != nil {
		return 0, fmt.Errorf("link program: %w", err)
	}
	m.log.Debug("linked program", "key", comboHash)

	if m.store != nil {
		format, data := m.dev.ProgramBinary(program)
		if len(data) > 0 {
			m.store.Insert(comboHash, format, data)
		}
	}
	return program, nil
}

// getOrCompile returns the stage compiled from source, deduplicated by
// content hash: two configurations generating identical text share one
// stage object. Compilation failure inserts nothing.
func (m *Manager) getOrCompile(sourceHash uint64, source string, stageType driver.StageType) (*Stage, error) {
	if stage, ok := m.stages[sourceHash]; ok {
		return stage, nil
	}

	stage := newStage(m.separable)
	if err := stage.create(m.dev, source, stageType, sourceHash); err != nil {
		stage.destroy(m.dev)
		return nil, err
	}
	m.log.Debug("compiled stage", "stage", stageType, "hash", sourceHash)
	m.stages[sourceHash] = stage
	return stage, nil
}

// Stats returns the configuration resolution hit and miss counts.
func (m *Manager) Stats() (hits, misses uint64) {
	return m.hits, m.misses
}

// Destroy flushes the program-binary store (if persistence is enabled) and
// releases every GPU object the Manager owns. The Manager must not be used
// afterwards.
func (m *Manager) Destroy() {
	if m.store != nil {
		m.store.Save()
	}

	for _, program := range m.programs {
		m.dev.DeleteProgram(program)
	}
	for _, stage := range m.stages {
		stage.destroy(m.dev)
	}
	m.trivialVertex.destroy(m.dev)
	m.trivialGeometry.destroy(m.dev)
	if m.pipeline != 0 {
		m.dev.DeletePipeline(m.pipeline)
		m.pipeline = 0
	}

	m.programs = nil
	m.stages = nil
	m.resolved = nil
}
