package meadow

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCamera_Defaults(t *testing.T) {
	cam := NewCamera(DefaultConfig().Camera, 1280, 720)

	assert.Equal(t, mgl32.Vec3{12, 17, -12}, cam.Position)
	assert.Equal(t, float32(35), cam.FOV)
	assert.InDelta(t, 1280.0/720.0, cam.Aspect, 1e-6)
}

func TestCamera_SetViewportIgnoresDegenerate(t *testing.T) {
	cam := NewCamera(DefaultConfig().Camera, 800, 400)
	cam.SetViewport(0, 0)
	assert.InDelta(t, 2.0, cam.Aspect, 1e-6)

	cam.SetViewport(300, 600)
	assert.InDelta(t, 0.5, cam.Aspect, 1e-6)
}

func TestCamera_ProjectsTargetToCenter(t *testing.T) {
	cam := NewCamera(DefaultConfig().Camera, 1000, 1000)
	clip := cam.ViewProjection().Mul4x1(cam.Target.Vec4(1))
	ndc := clip.Vec3().Mul(1 / clip.W())

	assert.InDelta(t, 0, ndc.X(), 1e-5)
	assert.InDelta(t, 0, ndc.Y(), 1e-5)
	// WebGPU clip depth is [0, 1].
	assert.Greater(t, ndc.Z(), float32(0))
	assert.Less(t, ndc.Z(), float32(1))
}
