package meadow

import "github.com/go-gl/mathgl/mgl32"

// PostProcess describes the final pass from the offscreen scene target to the
// surface: optional FXAA plus tone mapping.
type PostProcess struct {
	FXAA        bool
	ToneMapping string
	Exposure    float32

	invResolution mgl32.Vec2
}

func NewPostProcess(cfg PostProcessConfig, width, height int) *PostProcess {
	p := &PostProcess{
		FXAA:          cfg.FXAA,
		ToneMapping:   cfg.ToneMapping,
		Exposure:      cfg.Exposure,
		invResolution: mgl32.Vec2{1, 1},
	}
	p.Resize(width, height)
	return p
}

// Resize recomputes the texel size FXAA samples with. Degenerate sizes keep
// the previous value.
func (p *PostProcess) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	p.invResolution = mgl32.Vec2{1 / float32(width), 1 / float32(height)}
}

func (p *PostProcess) InvResolution() mgl32.Vec2 {
	return p.invResolution
}

const (
	toneMappingNone uint32 = iota
	toneMappingReinhard
)

type postUniform struct {
	InvResolution mgl32.Vec2
	Exposure      float32
	ToneMapping   uint32
	FXAA          uint32
	_             [3]uint32
}

func (p *PostProcess) uniform() postUniform {
	u := postUniform{
		InvResolution: p.invResolution,
		Exposure:      p.Exposure,
		ToneMapping:   toneMappingNone,
	}
	if p.ToneMapping == ToneMappingReinhard {
		u.ToneMapping = toneMappingReinhard
	}
	if p.FXAA {
		u.FXAA = 1
	}
	return u
}
