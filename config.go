package meadow

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type CameraConfig struct {
	Position [3]float32 `yaml:"position"`
	Target   [3]float32 `yaml:"target"`
	FOV      float32    `yaml:"fov"` // vertical, degrees
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
}

type ControlsConfig struct {
	EnableDamping bool    `yaml:"enable_damping"`
	DampingFactor float32 `yaml:"damping_factor"`
	RotateSpeed   float32 `yaml:"rotate_speed"`
	ZoomSpeed     float32 `yaml:"zoom_speed"`
	MinDistance   float32 `yaml:"min_distance"`
	MaxDistance   float32 `yaml:"max_distance"`
}

type FieldConfig struct {
	Count     int        `yaml:"count"`
	Extent    float32    `yaml:"extent"` // offsets are sampled in (-Extent, Extent)
	Position  [3]float32 `yaml:"position"`
	RotationX float32    `yaml:"rotation_x"`
}

type AnimationConfig struct {
	InitialTime float32 `yaml:"initial_time"`
	Step        float32 `yaml:"step"`
}

type GroundConfig struct {
	Width     float32 `yaml:"width"`
	Depth     float32 `yaml:"depth"`
	RotationX float32 `yaml:"rotation_x"`
}

type SkyConfig struct {
	Distance        float32    `yaml:"distance"`
	SunPosition     [3]float32 `yaml:"sun_position"`
	Turbidity       float32    `yaml:"turbidity"`
	Rayleigh        float32    `yaml:"rayleigh"`
	MieCoefficient  float32    `yaml:"mie_coefficient"`
	MieDirectionalG float32    `yaml:"mie_directional_g"`
}

type AmbientLightConfig struct {
	Color     [3]float32 `yaml:"color"`
	Intensity float32    `yaml:"intensity"`
}

type PostProcessConfig struct {
	FXAA        bool    `yaml:"fxaa"`
	ToneMapping string  `yaml:"tone_mapping"` // "reinhard" or "none"
	Exposure    float32 `yaml:"exposure"`
}

type AssetsConfig struct {
	MeshPath    string `yaml:"mesh_path"`
	MeshNode    string `yaml:"mesh_node"`
	TexturePath string `yaml:"texture_path"`
	Workers     int    `yaml:"workers"`
}

type Config struct {
	Window       WindowConfig       `yaml:"window"`
	Camera       CameraConfig       `yaml:"camera"`
	Controls     ControlsConfig     `yaml:"controls"`
	Field        FieldConfig        `yaml:"field"`
	Animation    AnimationConfig    `yaml:"animation"`
	Ground       GroundConfig       `yaml:"ground"`
	Sky          SkyConfig          `yaml:"sky"`
	AmbientLight AmbientLightConfig `yaml:"ambient_light"`
	PostProcess  PostProcessConfig  `yaml:"post_process"`
	Assets       AssetsConfig       `yaml:"assets"`
	Debug        bool               `yaml:"debug"`
}

const (
	ToneMappingNone     = "none"
	ToneMappingReinhard = "reinhard"
)

var ErrInvalidConfig = errors.New("invalid config")

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "Meadow",
		},
		Camera: CameraConfig{
			Position: [3]float32{12, 17, -12},
			Target:   [3]float32{0, 0, 0},
			FOV:      35,
			Near:     0.1,
			Far:      1000,
		},
		Controls: ControlsConfig{
			EnableDamping: true,
			DampingFactor: 0.1,
			RotateSpeed:   0.5,
			ZoomSpeed:     1,
			MinDistance:   0,
			MaxDistance:   float32(math.Inf(1)),
		},
		Field: FieldConfig{
			Count:     700,
			Extent:    10,
			Position:  [3]float32{0, 2, 0},
			RotationX: math.Pi,
		},
		Animation: AnimationConfig{
			InitialTime: 1.0,
			Step:        0.1,
		},
		Ground: GroundConfig{
			Width:     21.2,
			Depth:     21.2,
			RotationX: -math.Pi / 2,
		},
		Sky: SkyConfig{
			Distance:        450000,
			SunPosition:     [3]float32{0, 1, 0},
			Turbidity:       10,
			Rayleigh:        0.5,
			MieCoefficient:  0.005,
			MieDirectionalG: 0.8,
		},
		AmbientLight: AmbientLightConfig{
			Color:     [3]float32{1, 1, 1},
			Intensity: 1,
		},
		PostProcess: PostProcessConfig{
			FXAA:        true,
			ToneMapping: ToneMappingReinhard,
			Exposure:    1,
		},
		Assets: AssetsConfig{
			MeshPath:    "assets/grass.glb",
			MeshNode:    "grass",
			TexturePath: "assets/grass-new.png",
			Workers:     2,
		},
	}
}

// LoadConfig reads a YAML file and overlays it on DefaultConfig.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := DecodeConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig overlays YAML from r on DefaultConfig. Unknown keys are rejected.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Field.Count < 0:
		return fmt.Errorf("%w: field.count must not be negative, got %d", ErrInvalidConfig, c.Field.Count)
	case !validExtent(c.Field.Extent):
		return fmt.Errorf("%w: field.extent must be positive and finite, got %v", ErrInvalidConfig, c.Field.Extent)
	case c.Camera.FOV <= 0 || c.Camera.FOV >= 180:
		return fmt.Errorf("%w: camera.fov must be in (0, 180), got %v", ErrInvalidConfig, c.Camera.FOV)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("%w: camera near/far must satisfy 0 < near < far", ErrInvalidConfig)
	case c.Controls.DampingFactor < 0 || c.Controls.DampingFactor > 1:
		return fmt.Errorf("%w: controls.damping_factor must be in [0, 1], got %v", ErrInvalidConfig, c.Controls.DampingFactor)
	case !(c.Animation.Step > 0):
		return fmt.Errorf("%w: animation.step must be positive, got %v", ErrInvalidConfig, c.Animation.Step)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size must be positive", ErrInvalidConfig)
	case c.PostProcess.ToneMapping != ToneMappingNone && c.PostProcess.ToneMapping != ToneMappingReinhard:
		return fmt.Errorf("%w: unknown tone mapping %q", ErrInvalidConfig, c.PostProcess.ToneMapping)
	case c.Assets.MeshPath == "" || c.Assets.TexturePath == "":
		return fmt.Errorf("%w: asset paths must be set", ErrInvalidConfig)
	}
	return nil
}
