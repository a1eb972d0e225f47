package meadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnimationDriver_AdvancesTime(t *testing.T) {
	uniforms := NewUniformSet(1.0, "")
	driver := NewAnimationDriver(uniforms, DefaultConfig().Animation, nil)

	prev := uniforms.Time
	for range 10 {
		driver.Frame()
		require.Greater(t, uniforms.Time, prev)
		prev = uniforms.Time
	}
	assert.InDelta(t, 2.0, uniforms.Time, 1e-5)
}

func TestAnimationDriver_SharedUniformSet(t *testing.T) {
	uniforms := NewUniformSet(1.0, "tex")
	grass := &Material{Shader: "grass", Uniforms: uniforms}
	ground := &Material{Shader: "ground", Uniforms: uniforms}

	driver := NewAnimationDriver(uniforms, AnimationConfig{InitialTime: 1, Step: 0.1}, nil)
	driver.Frame()

	assert.Equal(t, grass.Uniforms.Time, ground.Uniforms.Time)
	assert.InDelta(t, 1.1, ground.Uniforms.Time, 1e-6)
}

func TestAnimationDriver_UpdatesControls(t *testing.T) {
	cfg := DefaultConfig()
	cam := NewCamera(cfg.Camera, 800, 600)
	controls := NewOrbitControls(cam, cfg.Controls)
	uniforms := NewUniformSet(1.0, "")
	driver := NewAnimationDriver(uniforms, cfg.Animation, controls)

	start := cam.Position
	controls.Rotate(100, 0, 600)
	driver.UpdateControls()

	assert.Equal(t, float32(1.0), uniforms.Time)
	assert.NotEqual(t, start, cam.Position)
}
