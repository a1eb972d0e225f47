package meadow

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestPostProcess_InvResolutionFollowsResize(t *testing.T) {
	p := NewPostProcess(DefaultConfig().PostProcess, 800, 400)
	assert.Equal(t, mgl32.Vec2{1.0 / 800, 1.0 / 400}, p.InvResolution())

	p.Resize(1024, 512)
	assert.Equal(t, mgl32.Vec2{1.0 / 1024, 1.0 / 512}, p.InvResolution())

	p.Resize(0, 0)
	assert.Equal(t, mgl32.Vec2{1.0 / 1024, 1.0 / 512}, p.InvResolution())
}

func TestPostProcess_Uniform(t *testing.T) {
	p := NewPostProcess(PostProcessConfig{FXAA: true, ToneMapping: ToneMappingReinhard, Exposure: 1.5}, 100, 100)
	u := p.uniform()
	assert.Equal(t, toneMappingReinhard, u.ToneMapping)
	assert.Equal(t, uint32(1), u.FXAA)
	assert.Equal(t, float32(1.5), u.Exposure)
	assert.Len(t, uniformBytes(u), 32)

	p.ToneMapping = ToneMappingNone
	p.FXAA = false
	u = p.uniform()
	assert.Equal(t, toneMappingNone, u.ToneMapping)
	assert.Zero(t, u.FXAA)
}
