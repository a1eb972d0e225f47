package meadow

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrNegativeInstanceCount = errors.New("instance count must not be negative")
	ErrInvalidExtent         = errors.New("field extent must be positive")
)

// InstanceBuffer holds the per-instance attributes of a field. It is filled
// once at creation and never modified afterwards.
type InstanceBuffer struct {
	Offsets   []mgl32.Vec3
	Rotations []float32
}

func (b *InstanceBuffer) Len() int {
	return len(b.Offsets)
}

// NewInstanceBuffer samples count offsets with x and z uniform in the open
// interval (-extent, extent) and y = 0, and count rotations uniform in [0, 2π).
// A nil rng uses a clock-seeded source.
func NewInstanceBuffer(count int, extent float32, rng *rand.Rand) (*InstanceBuffer, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeInstanceCount, count)
	}
	if !validExtent(extent) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExtent, extent)
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}

	buf := &InstanceBuffer{
		Offsets:   make([]mgl32.Vec3, count),
		Rotations: make([]float32, count),
	}
	for i := range count {
		buf.Offsets[i] = mgl32.Vec3{
			sampleOpen(rng, -extent, extent),
			0,
			sampleOpen(rng, -extent, extent),
		}
	}
	for i := range count {
		buf.Rotations[i] = sampleHalfOpen(rng, 0, 2*math32.Pi)
	}
	return buf, nil
}

// validExtent rejects extents whose full width 2*extent is not a finite
// float32, since sampling over an infinite range never lands inside it.
func validExtent(extent float32) bool {
	return extent > 0 && !math32.IsInf(2*extent, 0)
}

// sampleOpen draws from (low, high). float32 rounding can land exactly on a
// bound, so those draws are repeated.
func sampleOpen(rng *rand.Rand, low, high float32) float32 {
	for {
		v := low + float32(rng.Float64())*(high-low)
		if v > low && v < high {
			return v
		}
	}
}

// sampleHalfOpen draws from [low, high).
func sampleHalfOpen(rng *rand.Rand, low, high float32) float32 {
	for {
		v := low + float32(rng.Float64()*float64(high-low))
		if v >= low && v < high {
			return v
		}
	}
}

// Field is an instanced mesh: one geometry and one material shared by every
// instance, drawn with a single call.
type Field struct {
	Mesh      AssetId
	Material  *Material
	Instances *InstanceBuffer
}

func NewField(cfg FieldConfig, mesh AssetId, material *Material, rng *rand.Rand) (*Field, error) {
	instances, err := NewInstanceBuffer(cfg.Count, cfg.Extent, rng)
	if err != nil {
		return nil, fmt.Errorf("field: %w", err)
	}
	return &Field{
		Mesh:      mesh,
		Material:  material,
		Instances: instances,
	}, nil
}

func (f *Field) InstanceCount() int {
	return f.Instances.Len()
}

// offsetBytes packs offsets as tightly packed vec3<f32> for the instance buffer.
func (b *InstanceBuffer) offsetBytes() []byte {
	floats := make([]float32, 0, len(b.Offsets)*3)
	for _, o := range b.Offsets {
		floats = append(floats, o[0], o[1], o[2])
	}
	return float32Bytes(floats)
}

func (b *InstanceBuffer) rotationBytes() []byte {
	return float32Bytes(b.Rotations)
}
