package meadow

import "github.com/go-gl/mathgl/mgl32"

// Material pairs a shader program with the uniform set it reads. Materials
// that share a UniformSet animate in lockstep.
type Material struct {
	Name        string
	Shader      string
	Uniforms    *UniformSet
	Transparent bool
	DoubleSided bool
}

// materialUniform mirrors the WGSL Material struct.
type materialUniform struct {
	Model   mgl32.Mat4
	Ambient mgl32.Vec4 // rgb * intensity
	Time    float32
	_       [3]float32
}

// cameraUniform mirrors the WGSL Camera struct.
type cameraUniform struct {
	ViewProj    mgl32.Mat4
	InvViewProj mgl32.Mat4
	Position    mgl32.Vec4
}
