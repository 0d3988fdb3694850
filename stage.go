package shadercache

import (
	"fmt"

	"github.com/gogpu/shadercache/driver"
)

// Stage is one compiled shader stage. Depending on the binding model chosen
// at manager construction it owns one of two GPU object kinds:
//
//   - monolithic mode: a bare shader object, later linked with the other
//     stages into a single program;
//   - separable mode: a separable program object wrapping the stage, bound
//     on its own to a pipeline slot.
//
// The variant is fixed at creation and never switches. A Stage is owned by
// exactly one manager cache (or is one of the two trivial singletons);
// everything else holds non-owning references.
type Stage struct {
	separable bool

	// shader is set in monolithic mode, program in separable mode. The
	// trivial geometry singleton leaves both zero: an empty stage whose
	// zero handle detaches the pipeline slot.
	shader  driver.ShaderID
	program driver.ProgramID

	// hash is the content hash of the generating source, or zero for the
	// trivial singletons.
	hash uint64
}

// newStage returns an empty stage of the given binding model.
func newStage(separable bool) *Stage {
	return &Stage{separable: separable}
}

// create compiles source into the stage's GPU object. In separable mode the
// intermediate shader object is linked into a separable program, the fixed
// uniform block bindings are wired, and fragment stages additionally get
// their sampler and image bindings; the intermediate shader is then
// released. Failure leaves the stage empty.
func (s *Stage) create(dev driver.Device, source string, stage driver.StageType, hash uint64) error {
	s.hash = hash

	shader, err := dev.CompileShader(stage, source)
	if err != nil {
		return fmt.Errorf("compile %s shader: %w", stage, err)
	}

	if !s.separable {
		s.shader = shader
		return nil
	}

	program, err := dev.LinkProgram(true, shader)
	dev.DeleteShader(shader)
	if err != nil {
		return fmt.Errorf("link separable %s program: %w", stage, err)
	}

	setUniformBlockBindings(dev, program)
	if stage == driver.StageFragment {
		setSamplerBindings(dev, program)
	}

	s.program = program
	return nil
}

// Shader returns the shader object handle (monolithic mode). Zero for the
// trivial geometry singleton.
func (s *Stage) Shader() driver.ShaderID { return s.shader }

// Program returns the separable program handle (separable mode). Zero for
// the trivial geometry singleton.
func (s *Stage) Program() driver.ProgramID { return s.program }

// Hash returns the content hash of the stage's generating source.
func (s *Stage) Hash() uint64 { return s.hash }

// destroy releases the stage's GPU object, if any.
func (s *Stage) destroy(dev driver.Device) {
	if s.shader != 0 {
		dev.DeleteShader(s.shader)
		s.shader = 0
	}
	if s.program != 0 {
		dev.DeleteProgram(s.program)
		s.program = 0
	}
}
