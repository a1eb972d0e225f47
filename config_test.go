package meadow

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, [3]float32{12, 17, -12}, cfg.Camera.Position)
	assert.Equal(t, float32(35), cfg.Camera.FOV)
	assert.Equal(t, 700, cfg.Field.Count)
	assert.Equal(t, float32(10), cfg.Field.Extent)
	assert.Equal(t, [3]float32{0, 2, 0}, cfg.Field.Position)
	assert.Equal(t, float32(1.0), cfg.Animation.InitialTime)
	assert.Equal(t, float32(0.1), cfg.Animation.Step)
	assert.Equal(t, float32(0.1), cfg.Controls.DampingFactor)
	assert.Equal(t, float32(0.5), cfg.Controls.RotateSpeed)
	assert.Equal(t, float32(450000), cfg.Sky.Distance)
	assert.Equal(t, ToneMappingReinhard, cfg.PostProcess.ToneMapping)
	assert.True(t, math.IsInf(float64(cfg.Controls.MaxDistance), 1))
}

func TestDecodeConfig_Overlay(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(`
field:
  count: 12
camera:
  fov: 50
post_process:
  tone_mapping: none
`))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Field.Count)
	assert.Equal(t, float32(50), cfg.Camera.FOV)
	assert.Equal(t, ToneMappingNone, cfg.PostProcess.ToneMapping)
	// Untouched keys keep their defaults.
	assert.Equal(t, float32(10), cfg.Field.Extent)
	assert.Equal(t, [3]float32{12, 17, -12}, cfg.Camera.Position)
}

func TestDecodeConfig_Empty(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestDecodeConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "field:\n  density: 3\n"},
		{"negative count", "field:\n  count: -1\n"},
		{"zero extent", "field:\n  extent: 0\n"},
		{"infinite extent", "field:\n  extent: .inf\n"},
		{"overflowing extent", "field:\n  extent: 3.0e38\n"},
		{"zero step", "animation:\n  step: 0\n"},
		{"negative step", "animation:\n  step: -0.1\n"},
		{"bad fov", "camera:\n  fov: 190\n"},
		{"bad tone mapping", "post_process:\n  tone_mapping: aces\n"},
		{"bad damping", "controls:\n  damping_factor: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConfig(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := DecodeConfig(strings.NewReader("field:\n  count: -1\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meadow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window:\n  title: Test\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Test", cfg.Window.Title)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
