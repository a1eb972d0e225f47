package meadow

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformLayouts(t *testing.T) {
	// Sizes must match the WGSL structs, including trailing padding.
	assert.Len(t, uniformBytes(materialUniform{}), 96)
	assert.Len(t, uniformBytes(cameraUniform{}), 144)
	assert.Len(t, uniformBytes(skyUniform{}), 32)
	assert.Len(t, uniformBytes(postUniform{}), 32)
}

func TestUniformBytes_TimeOffset(t *testing.T) {
	b := uniformBytes(materialUniform{Model: mgl32.Ident4(), Time: 1.5})
	require.Len(t, b, 96)
	got := math.Float32frombits(binary.LittleEndian.Uint32(b[80:84]))
	assert.Equal(t, float32(1.5), got)
	// Column-major identity: first element is 1.
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])))
}

func TestFloat32Bytes(t *testing.T) {
	b := float32Bytes([]float32{1, -2})
	require.Len(t, b, 8)
	assert.Equal(t, float32(-2), math.Float32frombits(binary.LittleEndian.Uint32(b[4:])))
	assert.Empty(t, float32Bytes(nil))
	assert.Len(t, uint32Bytes([]uint32{1, 2, 3}), 12)
}
