package meadow

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrInvalidMesh = errors.New("invalid mesh")

// MeshData is an indexed triangle list. Normals and UVs are optional but, when
// present, have one entry per position.
type MeshData struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

// meshVertexStride is position(12) + normal(12) + uv(8).
const meshVertexStride = 32

func (m *MeshData) Validate() error {
	n := len(m.Positions)
	switch {
	case n == 0:
		return fmt.Errorf("%w: no positions", ErrInvalidMesh)
	case m.Normals != nil && len(m.Normals) != n:
		return fmt.Errorf("%w: %d normals for %d positions", ErrInvalidMesh, len(m.Normals), n)
	case m.UVs != nil && len(m.UVs) != n:
		return fmt.Errorf("%w: %d uvs for %d positions", ErrInvalidMesh, len(m.UVs), n)
	case len(m.Indices)%3 != 0:
		return fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidMesh, len(m.Indices))
	}
	for _, idx := range m.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d out of range", ErrInvalidMesh, idx)
		}
	}
	return nil
}

// IndexCount is the number of indices drawn; unindexed meshes draw positions
// in order.
func (m *MeshData) IndexCount() int {
	if len(m.Indices) == 0 {
		return len(m.Positions)
	}
	return len(m.Indices)
}

// interleave packs vertices as position, normal, uv. Missing normals default
// to +Y and missing uvs to zero.
func (m *MeshData) interleave() []byte {
	floats := make([]float32, 0, len(m.Positions)*meshVertexStride/4)
	for i, p := range m.Positions {
		normal := mgl32.Vec3{0, 1, 0}
		if m.Normals != nil {
			normal = m.Normals[i]
		}
		var uv mgl32.Vec2
		if m.UVs != nil {
			uv = m.UVs[i]
		}
		floats = append(floats, p[0], p[1], p[2], normal[0], normal[1], normal[2], uv[0], uv[1])
	}
	return float32Bytes(floats)
}

func (m *MeshData) indexBytes() []byte {
	if len(m.Indices) > 0 {
		return uint32Bytes(m.Indices)
	}
	seq := make([]uint32, len(m.Positions))
	for i := range seq {
		seq[i] = uint32(i)
	}
	return uint32Bytes(seq)
}

// NewPlane builds a width x depth plane in the XY plane facing +Z, split into
// segX x segY quads, with uvs spanning [0, 1]. Rotate it by -π/2 about X to lay
// it flat.
func NewPlane(width, depth float32, segX, segY int) *MeshData {
	if segX < 1 {
		segX = 1
	}
	if segY < 1 {
		segY = 1
	}
	halfW, halfD := width/2, depth/2
	m := &MeshData{}
	for iy := 0; iy <= segY; iy++ {
		v := float32(iy) / float32(segY)
		y := halfD - v*depth
		for ix := 0; ix <= segX; ix++ {
			u := float32(ix) / float32(segX)
			m.Positions = append(m.Positions, mgl32.Vec3{-halfW + u*width, y, 0})
			m.Normals = append(m.Normals, mgl32.Vec3{0, 0, 1})
			m.UVs = append(m.UVs, mgl32.Vec2{u, 1 - v})
		}
	}
	row := uint32(segX + 1)
	for iy := uint32(0); iy < uint32(segY); iy++ {
		for ix := uint32(0); ix < uint32(segX); ix++ {
			a := iy*row + ix
			b := (iy+1)*row + ix
			c := (iy+1)*row + ix + 1
			d := iy*row + ix + 1
			m.Indices = append(m.Indices, a, b, d, b, c, d)
		}
	}
	return m
}
