package meadow

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestControls(damping bool) (*Camera, *OrbitControls) {
	cfg := DefaultConfig()
	cfg.Controls.EnableDamping = damping
	cam := NewCamera(cfg.Camera, 800, 600)
	return cam, NewOrbitControls(cam, cfg.Controls)
}

func TestOrbitControls_IdleKeepsCamera(t *testing.T) {
	cam, controls := newTestControls(true)
	for range 5 {
		controls.Update()
	}
	assert.InDelta(t, 12, cam.Position.X(), 1e-3)
	assert.InDelta(t, 17, cam.Position.Y(), 1e-3)
	assert.InDelta(t, -12, cam.Position.Z(), 1e-3)
}

func TestOrbitControls_DampingConverges(t *testing.T) {
	cam, controls := newTestControls(true)
	radius := cam.Position.Sub(controls.Target).Len()

	controls.Rotate(200, 0, 600)
	first := cam.Position
	require.True(t, controls.Update())
	firstStep := cam.Position.Sub(first).Len()

	var last float32
	for range 200 {
		prev := cam.Position
		controls.Update()
		last = cam.Position.Sub(prev).Len()
	}
	assert.Less(t, last, firstStep*0.01)
	assert.False(t, controls.Update())
	// Orbiting never changes the distance to the target.
	assert.InDelta(t, radius, cam.Position.Sub(controls.Target).Len(), 1e-3)
}

func TestOrbitControls_NoDampingAppliesAtOnce(t *testing.T) {
	cam, controls := newTestControls(false)
	controls.Rotate(150, 0, 600)
	controls.Update()
	moved := cam.Position

	assert.False(t, controls.Update())
	assert.Equal(t, moved, cam.Position)
}

func TestOrbitControls_PolarClamp(t *testing.T) {
	cam, controls := newTestControls(false)
	controls.MaxPolar = math32.Pi / 2

	// Drag far enough to go under the ground plane.
	controls.Rotate(0, -5000, 600)
	controls.Update()
	assert.GreaterOrEqual(t, cam.Position.Y(), float32(-1e-3))

	controls.Rotate(0, 5000, 600)
	controls.Update()
	_, _, phi := toSpherical(cam.Position.Sub(controls.Target))
	assert.Greater(t, phi, float32(0))
}

func TestOrbitControls_ZoomClamp(t *testing.T) {
	cam, controls := newTestControls(false)
	controls.MinDistance = 5
	controls.MaxDistance = 40

	for range 100 {
		controls.Zoom(1)
		controls.Update()
	}
	assert.InDelta(t, 5, cam.Position.Sub(controls.Target).Len(), 1e-3)

	for range 100 {
		controls.Zoom(-1)
		controls.Update()
	}
	assert.InDelta(t, 40, cam.Position.Sub(controls.Target).Len(), 1e-3)
}

func TestOrbitControls_PanMovesTarget(t *testing.T) {
	cam, controls := newTestControls(false)
	offset := cam.Position.Sub(controls.Target)

	controls.Pan(50, 0, 600)
	controls.Update()

	assert.NotEqual(t, float32(0), controls.Target.Len())
	assert.Equal(t, controls.Target, cam.Target)
	assert.InDelta(t, offset.Len(), cam.Position.Sub(controls.Target).Len(), 1e-3)
}
