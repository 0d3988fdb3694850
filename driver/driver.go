// Package driver defines the GPU object primitives consumed by the shader
// program manager.
//
// The manager never talks to the GPU directly: compilation, linking,
// program-binary transfer and pipeline binding all go through the Device
// interface. A production implementation wraps the platform's GL context;
// tests inject a fake.
//
// All handle types follow GL conventions: the zero value is "no object".
package driver

// StageType identifies one programmable step of the GPU pipeline.
type StageType uint8

// Pipeline stages, in pipeline order.
const (
	StageVertex StageType = iota
	StageGeometry
	StageFragment
)

// String returns the lowercase stage name for logs and error messages.
func (t StageType) String() string {
	switch t {
	case StageVertex:
		return "vertex"
	case StageGeometry:
		return "geometry"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// ShaderID is a compiled shader object handle. Zero means no shader.
type ShaderID uint32

// ProgramID is a linked program object handle. Zero means no program.
type ProgramID uint32

// PipelineID is a program pipeline object handle. Zero means no pipeline.
type PipelineID uint32

// Device is the set of GPU primitives the manager needs.
//
// All calls are synchronous and must be made from the thread that owns the
// GPU context. Implementations do not need to be safe for concurrent use;
// the manager never calls them from more than one goroutine.
type Device interface {
	// CompileShader compiles source into a shader object of the given stage.
	// Compilation failure returns a zero handle and a non-nil error.
	CompileShader(stage StageType, source string) (ShaderID, error)

	// DeleteShader releases a shader object. Zero handles are ignored.
	DeleteShader(shader ShaderID)

	// LinkProgram links the given shaders into a program object. When
	// separable is true the program is created with the separable hint so
	// it can be attached to a pipeline stage on its own.
	LinkProgram(separable bool, shaders ...ShaderID) (ProgramID, error)

	// DeleteProgram releases a program object. Zero handles are ignored.
	DeleteProgram(program ProgramID)

	// ProgramBinary retrieves the driver-specific binary representation of
	// a linked program. An empty slice means the driver cannot provide one;
	// that is not an error.
	ProgramBinary(program ProgramID) (format uint32, data []byte)

	// InstallBinary creates a program object from a binary previously
	// returned by ProgramBinary. The driver is free to reject binaries
	// produced by a different driver or GPU; rejection is reported as an
	// error and the caller falls back to linking from source.
	InstallBinary(format uint32, data []byte) (ProgramID, error)

	// CreatePipeline creates a program pipeline object.
	CreatePipeline() (PipelineID, error)

	// DeletePipeline releases a pipeline object. Zero handles are ignored.
	DeletePipeline(pipeline PipelineID)

	// BindPipelineStage attaches a separable program to one stage slot of a
	// pipeline. A zero program detaches the stage.
	BindPipelineStage(pipeline PipelineID, stage StageType, program ProgramID)

	// ClearPipelineStages detaches every stage of a pipeline in one call.
	ClearPipelineStages(pipeline PipelineID)

	// UniformBlockIndex looks up a named uniform block in a program.
	// The second result is false if the block does not exist (the block may
	// have been optimized out of the generated source).
	UniformBlockIndex(program ProgramID, name string) (uint32, bool)

	// UniformBlockSize reports the data size of a uniform block.
	UniformBlockSize(program ProgramID, index uint32) int

	// BindUniformBlock assigns a uniform block to a binding point.
	BindUniformBlock(program ProgramID, index uint32, binding uint32)

	// UniformLocation looks up a named uniform in a program. The second
	// result is false if the uniform does not exist.
	UniformLocation(program ProgramID, name string) (int32, bool)

	// SetUniformInt stores an integer into a program uniform. Used to point
	// sampler and image uniforms at fixed texture/image units.
	SetUniformInt(program ProgramID, location int32, value int32)
}

// RenderState receives the binding decision for a draw call.
//
// Exactly one of the two fields is non-zero after Manager.Apply: Program in
// monolithic mode, Pipeline in separable mode. The draw-submission stage
// consumes these and owns everything else about the GL state.
type RenderState struct {
	// Program is the linked program to draw with, or zero.
	Program ProgramID

	// Pipeline is the program pipeline to draw with, or zero.
	Pipeline PipelineID
}
