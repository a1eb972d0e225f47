package meadow

import "github.com/go-gl/mathgl/mgl32"

// Camera is a perspective camera looking from Position at Target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FOV      float32 // vertical, degrees
	Near     float32
	Far      float32
	Aspect   float32
}

// clipToWebGPU remaps OpenGL clip depth [-1, 1] to the [0, 1] range WebGPU expects.
var clipToWebGPU = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

func NewCamera(cfg CameraConfig, width, height int) *Camera {
	c := &Camera{
		Position: mgl32.Vec3(cfg.Position),
		Target:   mgl32.Vec3(cfg.Target),
		Up:       mgl32.Vec3{0, 1, 0},
		FOV:      cfg.FOV,
		Near:     cfg.Near,
		Far:      cfg.Far,
		Aspect:   1,
	}
	c.SetViewport(width, height)
	return c
}

// SetViewport updates the aspect ratio. Degenerate sizes, as reported while a
// window is minimised, are ignored.
func (c *Camera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) Projection() mgl32.Mat4 {
	return clipToWebGPU.Mul4(mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far))
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

func (c *Camera) uniform() cameraUniform {
	vp := c.ViewProjection()
	return cameraUniform{
		ViewProj:    vp,
		InvViewProj: vp.Inv(),
		Position:    c.Position.Vec4(1),
	}
}
