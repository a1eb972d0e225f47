package shaders

import (
	"strings"
	"testing"

	"github.com/gogpu/naga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShadersCompile(t *testing.T) {
	for name, src := range All {
		t.Run(name, func(t *testing.T) {
			require.NotEmpty(t, src)

			spirv, err := naga.Compile(src)
			if err != nil {
				msg := err.Error()
				if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
					t.Skipf("naga limitation: %v", err)
				}
			}
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(spirv), 4)

			// SPIR-V magic number, little endian.
			magic := uint32(spirv[0]) | uint32(spirv[1])<<8 | uint32(spirv[2])<<16 | uint32(spirv[3])<<24
			assert.Equal(t, uint32(0x07230203), magic)
		})
	}
}

func TestShadersDeclareEntryPoints(t *testing.T) {
	for name, src := range All {
		assert.Contains(t, src, "fn vs_main", name)
		assert.Contains(t, src, "fn fs_main", name)
	}
}

func TestMaterialShadersShareTimeUniform(t *testing.T) {
	for _, src := range []string{GroundWGSL, GrassWGSL} {
		assert.Contains(t, src, "time: f32")
		assert.Contains(t, src, "material.time")
	}
}

func TestGrassReadsInstanceAttributes(t *testing.T) {
	assert.Contains(t, GrassWGSL, "@location(3) offset: vec3<f32>")
	assert.Contains(t, GrassWGSL, "@location(4) rotation: f32")
}
