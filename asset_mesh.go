package meadow

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

var ErrMeshNodeNotFound = errors.New("mesh node not found")

// LoadGLTFMesh opens a .gltf or .glb file and extracts the mesh attached to
// the node with the given name. All triangle primitives of that mesh are
// merged into one MeshData. Node transforms are not applied.
func LoadGLTFMesh(path, nodeName string) (*MeshData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf %s: %w", path, err)
	}
	data, err := meshFromDocument(doc, nodeName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

func meshFromDocument(doc *gltf.Document, nodeName string) (*MeshData, error) {
	var mesh *gltf.Mesh
	for _, node := range doc.Nodes {
		if node.Name == nodeName && node.Mesh != nil {
			mesh = doc.Meshes[*node.Mesh]
			break
		}
	}
	if mesh == nil {
		return nil, fmt.Errorf("%w: %q", ErrMeshNodeNotFound, nodeName)
	}

	out := &MeshData{}
	hasNormals, hasUVs := true, true
	for i, prim := range mesh.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes["POSITION"]
		if !ok {
			return nil, fmt.Errorf("%w: primitive %d has no POSITION", ErrInvalidMesh, i)
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}
		base := uint32(len(out.Positions))
		for _, p := range positions {
			out.Positions = append(out.Positions, mgl32.Vec3(p))
		}

		if idx, ok := prim.Attributes["NORMAL"]; ok && hasNormals {
			normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
			if err != nil {
				return nil, fmt.Errorf("read normals: %w", err)
			}
			for _, n := range normals {
				out.Normals = append(out.Normals, mgl32.Vec3(n))
			}
		} else {
			hasNormals = false
		}

		if idx, ok := prim.Attributes["TEXCOORD_0"]; ok && hasUVs {
			uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
			if err != nil {
				return nil, fmt.Errorf("read uvs: %w", err)
			}
			for _, uv := range uvs {
				out.UVs = append(out.UVs, mgl32.Vec2(uv))
			}
		} else {
			hasUVs = false
		}

		if prim.Indices != nil {
			indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return nil, fmt.Errorf("read indices: %w", err)
			}
			for _, idx := range indices {
				out.Indices = append(out.Indices, base+idx)
			}
		} else {
			for j := range positions {
				out.Indices = append(out.Indices, base+uint32(j))
			}
		}
	}

	// Attributes only survive if every primitive carried them.
	if !hasNormals {
		out.Normals = nil
	}
	if !hasUVs {
		out.UVs = nil
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
