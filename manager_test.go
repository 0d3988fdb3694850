package shadercache

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/gogpu/shadercache/diskcache"
	"github.com/gogpu/shadercache/driver"
	"github.com/gogpu/shadercache/regs"
)

// fakeDevice implements driver.Device in memory, recording every call the
// manager makes.
type fakeDevice struct {
	nextHandle uint32

	compiles       int
	monoLinks      int
	separableLinks int
	installs       int

	rejectBinaries bool
	emitBinaries   bool

	// binaries holds the fake binary handed out for each linked program.
	binaries map[driver.ProgramID][]byte

	pipelines   int
	stageClears int
	stageBinds  []stageBind

	deletedShaders  int
	deletedPrograms int

	// blocks simulates the uniform blocks present in every program.
	blocks []fakeBlock

	// uniforms simulates sampler/image uniform locations by name.
	uniforms    map[string]int32
	uniformSets map[string]int32
}

type stageBind struct {
	pipeline driver.PipelineID
	stage    driver.StageType
	program  driver.ProgramID
}

type fakeBlock struct {
	name string
	size int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		emitBinaries: true,
		binaries:     make(map[driver.ProgramID][]byte),
		blocks: []fakeBlock{
			{commonBlockName, CommonBlockSize},
			{vsBlockName, VSBlockSize},
		},
		uniforms:    map[string]int32{},
		uniformSets: map[string]int32{},
	}
}

func (d *fakeDevice) handle() uint32 {
	d.nextHandle++
	return d.nextHandle
}

func (d *fakeDevice) CompileShader(stage driver.StageType, source string) (driver.ShaderID, error) {
	if source == "" {
		return 0, errors.New("empty source")
	}
	d.compiles++
	return driver.ShaderID(d.handle()), nil
}

func (d *fakeDevice) DeleteShader(shader driver.ShaderID) {
	if shader != 0 {
		d.deletedShaders++
	}
}

func (d *fakeDevice) LinkProgram(separable bool, shaders ...driver.ShaderID) (driver.ProgramID, error) {
	if separable {
		d.separableLinks++
	} else {
		d.monoLinks++
	}
	p := driver.ProgramID(d.handle())
	if d.emitBinaries {
		d.binaries[p] = []byte{byte(p), 0xCA, 0xFE}
	}
	return p, nil
}

func (d *fakeDevice) DeleteProgram(program driver.ProgramID) {
	if program != 0 {
		d.deletedPrograms++
	}
}

func (d *fakeDevice) ProgramBinary(program driver.ProgramID) (uint32, []byte) {
	return 0x8740, d.binaries[program]
}

func (d *fakeDevice) InstallBinary(format uint32, data []byte) (driver.ProgramID, error) {
	d.installs++
	if d.rejectBinaries {
		return 0, errors.New("binary rejected by driver")
	}
	return driver.ProgramID(d.handle()), nil
}

func (d *fakeDevice) CreatePipeline() (driver.PipelineID, error) {
	d.pipelines++
	return driver.PipelineID(d.handle()), nil
}

func (d *fakeDevice) DeletePipeline(pipeline driver.PipelineID) {}

func (d *fakeDevice) BindPipelineStage(pipeline driver.PipelineID, stage driver.StageType, program driver.ProgramID) {
	d.stageBinds = append(d.stageBinds, stageBind{pipeline, stage, program})
}

func (d *fakeDevice) ClearPipelineStages(pipeline driver.PipelineID) {
	d.stageClears++
}

func (d *fakeDevice) UniformBlockIndex(program driver.ProgramID, name string) (uint32, bool) {
	for i, b := range d.blocks {
		if b.name == name {
			return uint32(i), true
		}
	}
	return 0, false
}

func (d *fakeDevice) UniformBlockSize(program driver.ProgramID, index uint32) int {
	return d.blocks[index].size
}

func (d *fakeDevice) BindUniformBlock(program driver.ProgramID, index uint32, binding uint32) {}

func (d *fakeDevice) UniformLocation(program driver.ProgramID, name string) (int32, bool) {
	loc, ok := d.uniforms[name]
	return loc, ok
}

func (d *fakeDevice) SetUniformInt(program driver.ProgramID, location int32, value int32) {
	for name, loc := range d.uniforms {
		if loc == location {
			d.uniformSets[name] = value
		}
	}
}

// testGenerators returns generators whose output depends only on the key,
// like the real ones.
func testGenerators() Generators {
	return Generators{
		Vertex: func(setup *regs.ShaderSetup, key VertexKey, separable bool) string {
			return fmt.Sprintf("// vs %016X\n", key.ProgramHash)
		},
		Geometry: func(key GeometryKey, separable bool) string {
			return fmt.Sprintf("// gs %d\n", key.OutputTotal)
		},
		Fragment: func(key FragmentKey, separable bool) string {
			return fmt.Sprintf("// fs %v %d\n", key.TexTypes, key.FogMode)
		},
		TrivialVertex: func(separable bool) string {
			return "// trivial vs\n"
		},
	}
}

// useAll resolves all three stages for r/setup and fails the test on error.
func useAll(t *testing.T, m *Manager, r *regs.Regs, setup *regs.ShaderSetup) {
	t.Helper()
	ok, err := m.UseVertexShader(r, setup)
	if err != nil {
		t.Fatalf("UseVertexShader() = %v", err)
	}
	if !ok {
		m.UseTrivialVertexShader()
	}
	if err := m.UseFixedGeometryShader(r); err != nil {
		t.Fatalf("UseFixedGeometryShader() = %v", err)
	}
	if err := m.UseFragmentShader(r); err != nil {
		t.Fatalf("UseFragmentShader() = %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, testGenerators()); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil device) = %v, want ErrNilDevice", err)
	}

	gens := testGenerators()
	gens.Fragment = nil
	if _, err := New(newFakeDevice(), gens); !errors.Is(err, ErrMissingGenerator) {
		t.Errorf("New(incomplete generators) = %v, want ErrMissingGenerator", err)
	}
}

func TestRepeatedResolutionCompilesOnce(t *testing.T) {
	dev := newFakeDevice()
	gens := testGenerators()
	vertexCalls := 0
	inner := gens.Vertex
	gens.Vertex = func(setup *regs.ShaderSetup, key VertexKey, separable bool) string {
		vertexCalls++
		return inner(setup, key, separable)
	}

	m, err := New(dev, gens)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()
	baseline := dev.compiles // trivial vertex stage

	r := testRegs()
	setup := testSetup()
	for i := 0; i < 5; i++ {
		if _, err := m.UseVertexShader(&r, &setup); err != nil {
			t.Fatal(err)
		}
	}

	if vertexCalls != 1 {
		t.Errorf("generator called %d times for one configuration, want 1", vertexCalls)
	}
	if got := dev.compiles - baseline; got != 1 {
		t.Errorf("compiled %d stages for one configuration, want 1", got)
	}
	if hits, misses := m.Stats(); hits != 4 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses, want 4, 1", hits, misses)
	}
}

func TestIdenticalSourceDeduplicated(t *testing.T) {
	dev := newFakeDevice()
	gens := testGenerators()
	vertexCalls := 0
	gens.Vertex = func(setup *regs.ShaderSetup, key VertexKey, separable bool) string {
		vertexCalls++
		return "// collision: same source for every configuration\n"
	}

	m, err := New(dev, gens)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()
	baseline := dev.compiles

	r := testRegs()
	setupA := testSetup()
	setupB := testSetup()
	setupB.ProgramCode[0] ^= 1 // distinct configuration key

	if _, err := m.UseVertexShader(&r, &setupA); err != nil {
		t.Fatal(err)
	}
	if _, err := m.UseVertexShader(&r, &setupB); err != nil {
		t.Fatal(err)
	}

	if vertexCalls != 2 {
		t.Errorf("generator called %d times for two distinct keys, want 2", vertexCalls)
	}
	if got := dev.compiles - baseline; got != 1 {
		t.Errorf("compiled %d stages for colliding source, want 1 (shared)", got)
	}
}

func TestGeometryCachedByKeyHash(t *testing.T) {
	dev := newFakeDevice()
	geometryCalls := 0
	gens := testGenerators()
	inner := gens.Geometry
	gens.Geometry = func(key GeometryKey, separable bool) string {
		geometryCalls++
		return inner(key, separable)
	}

	m, err := New(dev, gens)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	r := testRegs()
	if err := m.UseFixedGeometryShader(&r); err != nil {
		t.Fatal(err)
	}
	if err := m.UseFixedGeometryShader(&r); err != nil {
		t.Fatal(err)
	}
	if geometryCalls != 1 {
		t.Errorf("generator called %d times for one geometry key, want 1", geometryCalls)
	}
}

func TestNullVertexPath(t *testing.T) {
	dev := newFakeDevice()
	gens := testGenerators()
	gens.Vertex = func(setup *regs.ShaderSetup, key VertexKey, separable bool) string {
		return "" // no programmable vertex stage for this configuration
	}

	m, err := New(dev, gens)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	r := testRegs()
	setup := testSetup()

	ok, err := m.UseVertexShader(&r, &setup)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("empty vertex source must report no programmable stage")
	}
	m.UseTrivialVertexShader()

	// The empty resolution must be cached like any other.
	ok, err = m.UseVertexShader(&r, &setup)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("cached empty resolution must still report no programmable stage")
	}
	m.UseTrivialVertexShader()

	if err := m.UseFixedGeometryShader(&r); err != nil {
		t.Fatal(err)
	}
	if err := m.UseFragmentShader(&r); err != nil {
		t.Fatal(err)
	}

	var state driver.RenderState
	if err := m.Apply(&state); err != nil {
		t.Fatalf("Apply() after trivial substitution = %v", err)
	}
	if state.Program == 0 {
		t.Error("monolithic Apply must publish a linked program")
	}
}

func TestApplyPanicsOnUnresolvedStage(t *testing.T) {
	m, err := New(newFakeDevice(), testGenerators())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	defer func() {
		if recover() == nil {
			t.Error("Apply with no stages selected must panic")
		}
	}()
	var state driver.RenderState
	_ = m.Apply(&state)
}

func TestMonolithicLinkCachedAcrossApplies(t *testing.T) {
	dev := newFakeDevice()
	m, err := New(dev, testGenerators())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	r := testRegs()
	setup := testSetup()
	var first, second driver.RenderState

	useAll(t, m, &r, &setup)
	if err := m.Apply(&first); err != nil {
		t.Fatal(err)
	}
	useAll(t, m, &r, &setup)
	if err := m.Apply(&second); err != nil {
		t.Fatal(err)
	}

	if dev.monoLinks != 1 {
		t.Errorf("linked %d programs for one stage combination, want 1", dev.monoLinks)
	}
	if first.Program != second.Program {
		t.Error("repeated Apply must publish the cached program")
	}
	if first.Pipeline != 0 {
		t.Error("monolithic Apply must not publish a pipeline")
	}
}

func TestSeparableApplyBindsStages(t *testing.T) {
	dev := newFakeDevice()
	m, err := New(dev, testGenerators(), WithSeparablePrograms())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	r := testRegs()
	setup := testSetup()
	useAll(t, m, &r, &setup)

	var state driver.RenderState
	if err := m.Apply(&state); err != nil {
		t.Fatal(err)
	}

	if state.Pipeline == 0 || state.Program != 0 {
		t.Errorf("separable Apply published program=%d pipeline=%d, want pipeline only",
			state.Program, state.Pipeline)
	}
	if dev.stageClears != 0 {
		t.Error("stage clear must not happen without the rebind workaround")
	}
	if len(dev.stageBinds) != 3 {
		t.Fatalf("bound %d stage slots, want 3", len(dev.stageBinds))
	}
	if dev.monoLinks != 0 {
		t.Error("separable mode must never link monolithic programs")
	}
}

func TestSeparableRebindWorkaround(t *testing.T) {
	dev := newFakeDevice()
	m, err := New(dev, testGenerators(), WithSeparablePrograms(), WithStageRebindWorkaround())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	r := testRegs()
	setup := testSetup()
	useAll(t, m, &r, &setup)

	var state driver.RenderState
	if err := m.Apply(&state); err != nil {
		t.Fatal(err)
	}
	if err := m.Apply(&state); err != nil {
		t.Fatal(err)
	}

	if dev.stageClears != 2 {
		t.Errorf("stage slots cleared %d times across two Applies, want 2", dev.stageClears)
	}
}

func TestSeparableTrivialGeometryUnbindsSlot(t *testing.T) {
	dev := newFakeDevice()
	m, err := New(dev, testGenerators(), WithSeparablePrograms())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	r := testRegs()
	setup := testSetup()
	ok, err := m.UseVertexShader(&r, &setup)
	if err != nil || !ok {
		t.Fatalf("UseVertexShader() = %v, %v", ok, err)
	}
	m.UseTrivialGeometryShader()
	if err := m.UseFragmentShader(&r); err != nil {
		t.Fatal(err)
	}

	var state driver.RenderState
	if err := m.Apply(&state); err != nil {
		t.Fatal(err)
	}

	var geometry *stageBind
	for i := range dev.stageBinds {
		if dev.stageBinds[i].stage == driver.StageGeometry {
			geometry = &dev.stageBinds[i]
		}
	}
	if geometry == nil {
		t.Fatal("geometry slot was never bound")
	}
	if geometry.program != 0 {
		t.Errorf("trivial geometry bound program %d, want 0 (slot detached)", geometry.program)
	}
}

func TestModeExclusivityNoPersistenceInSeparable(t *testing.T) {
	dir := t.TempDir()
	dev := newFakeDevice()
	m, err := New(dev, testGenerators(), WithSeparablePrograms(), WithDiskCache(dir, 0x55D00))
	if err != nil {
		t.Fatal(err)
	}

	setup := testSetup()
	var state driver.RenderState
	for i := uint32(0); i < 4; i++ {
		r := testRegs()
		r.Geometry.OutputTotal = i + 1 // vary the stage combination
		useAll(t, m, &r, &setup)
		if err := m.Apply(&state); err != nil {
			t.Fatal(err)
		}
	}
	m.Destroy()

	if dev.monoLinks != 0 {
		t.Errorf("separable mode linked %d monolithic programs, want 0", dev.monoLinks)
	}
	if _, err := os.Stat(diskcache.FilePath(dir, 0x55D00)); !errors.Is(err, os.ErrNotExist) {
		t.Error("separable mode must never write a binary store file")
	}
}

func TestDiskCacheRestoresProgramBinary(t *testing.T) {
	dir := t.TempDir()
	r := testRegs()
	setup := testSetup()
	var state driver.RenderState

	// First run: link from source, persist the binary on Destroy.
	devA := newFakeDevice()
	mA, err := New(devA, testGenerators(), WithDiskCache(dir, 0x55D00))
	if err != nil {
		t.Fatal(err)
	}
	useAll(t, mA, &r, &setup)
	if err := mA.Apply(&state); err != nil {
		t.Fatal(err)
	}
	mA.Destroy()

	if devA.monoLinks != 1 {
		t.Fatalf("first run linked %d programs, want 1", devA.monoLinks)
	}
	if _, err := os.Stat(diskcache.FilePath(dir, 0x55D00)); err != nil {
		t.Fatalf("store file missing after Destroy: %v", err)
	}

	// Second run: the same combination installs from the store, no link.
	devB := newFakeDevice()
	mB, err := New(devB, testGenerators(), WithDiskCache(dir, 0x55D00))
	if err != nil {
		t.Fatal(err)
	}
	defer mB.Destroy()
	useAll(t, mB, &r, &setup)
	if err := mB.Apply(&state); err != nil {
		t.Fatal(err)
	}

	if devB.installs != 1 {
		t.Errorf("second run installed %d binaries, want 1", devB.installs)
	}
	if devB.monoLinks != 0 {
		t.Errorf("second run linked %d programs, want 0 (restored from store)", devB.monoLinks)
	}
}

func TestRejectedBinaryDiscardsWholeStore(t *testing.T) {
	dir := t.TempDir()
	setup := testSetup()
	var state driver.RenderState

	// Seed the store with two distinct stage combinations.
	rA := testRegs()
	rB := testRegs()
	rB.Fog.Mode = regs.FogExp // distinct fragment stage, distinct combination

	devSeed := newFakeDevice()
	mSeed, err := New(devSeed, testGenerators(), WithDiskCache(dir, 0x55D00))
	if err != nil {
		t.Fatal(err)
	}
	useAll(t, mSeed, &rA, &setup)
	if err := mSeed.Apply(&state); err != nil {
		t.Fatal(err)
	}
	useAll(t, mSeed, &rB, &setup)
	if err := mSeed.Apply(&state); err != nil {
		t.Fatal(err)
	}
	mSeed.Destroy()

	// New driver rejects the stored binaries. The first rejection must
	// discard the whole table, so the second, previously valid key also
	// misses and links from source without another install attempt.
	dev := newFakeDevice()
	dev.rejectBinaries = true
	m, err := New(dev, testGenerators(), WithDiskCache(dir, 0x55D00))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	useAll(t, m, &rA, &setup)
	if err := m.Apply(&state); err != nil {
		t.Fatal(err)
	}
	useAll(t, m, &rB, &setup)
	if err := m.Apply(&state); err != nil {
		t.Fatal(err)
	}

	if dev.installs != 1 {
		t.Errorf("attempted %d binary installs, want 1 (table discarded after first rejection)", dev.installs)
	}
	if dev.monoLinks != 2 {
		t.Errorf("linked %d programs, want 2 (both fall through to source)", dev.monoLinks)
	}
}

func TestUniformBlockSizeMismatchPanics(t *testing.T) {
	dev := newFakeDevice()
	dev.blocks[1].size = VSBlockSize - 16 // generator/layout disagreement

	m, err := New(dev, testGenerators())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	r := testRegs()
	setup := testSetup()
	useAll(t, m, &r, &setup)

	defer func() {
		if recover() == nil {
			t.Error("uniform block size mismatch must panic")
		}
	}()
	var state driver.RenderState
	_ = m.Apply(&state)
}

func TestFragmentSamplerBindingsWired(t *testing.T) {
	dev := newFakeDevice()
	dev.uniforms = map[string]int32{
		"tex0":          10,
		"tex_cube":      11,
		"lut_rgba":      12,
		"shadow_buffer": 13,
	}

	m, err := New(dev, testGenerators(), WithSeparablePrograms())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	r := testRegs()
	if err := m.UseFragmentShader(&r); err != nil {
		t.Fatal(err)
	}

	want := map[string]int32{
		"tex0":          0,
		"tex_cube":      6,
		"lut_rgba":      5,
		"shadow_buffer": 0,
	}
	for name, unit := range want {
		if got, ok := dev.uniformSets[name]; !ok || got != unit {
			t.Errorf("sampler %q wired to unit %d (set=%v), want %d", name, got, ok, unit)
		}
	}
}

func TestDestroyReleasesProgramsAndStages(t *testing.T) {
	dev := newFakeDevice()
	m, err := New(dev, testGenerators())
	if err != nil {
		t.Fatal(err)
	}

	r := testRegs()
	setup := testSetup()
	useAll(t, m, &r, &setup)
	var state driver.RenderState
	if err := m.Apply(&state); err != nil {
		t.Fatal(err)
	}

	m.Destroy()
	if dev.deletedPrograms == 0 {
		t.Error("Destroy must release linked programs")
	}
	if dev.deletedShaders == 0 {
		t.Error("Destroy must release shader objects")
	}
}
