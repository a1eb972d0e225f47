package meadow

import "github.com/go-gl/mathgl/mgl32"

// Sky is an analytic daylight model drawn behind everything else.
type Sky struct {
	Distance        float32
	SunPosition     mgl32.Vec3
	Turbidity       float32
	Rayleigh        float32
	MieCoefficient  float32
	MieDirectionalG float32
}

func NewSky(cfg SkyConfig) *Sky {
	return &Sky{
		Distance:        cfg.Distance,
		SunPosition:     mgl32.Vec3(cfg.SunPosition),
		Turbidity:       cfg.Turbidity,
		Rayleigh:        cfg.Rayleigh,
		MieCoefficient:  cfg.MieCoefficient,
		MieDirectionalG: cfg.MieDirectionalG,
	}
}

type skyUniform struct {
	SunPosition     mgl32.Vec4 // xyz sun position, w dome distance
	Turbidity       float32
	Rayleigh        float32
	MieCoefficient  float32
	MieDirectionalG float32
}

func (s *Sky) uniform() skyUniform {
	return skyUniform{
		SunPosition:     s.SunPosition.Vec4(s.Distance),
		Turbidity:       s.Turbidity,
		Rayleigh:        s.Rayleigh,
		MieCoefficient:  s.MieCoefficient,
		MieDirectionalG: s.MieDirectionalG,
	}
}
