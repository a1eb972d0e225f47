package meadow

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGLTFMesh(t *testing.T) {
	path := writeTestGLB(t, t.TempDir(), "grass")

	mesh, err := LoadGLTFMesh(path, "grass")
	require.NoError(t, err)
	require.NoError(t, mesh.Validate())

	assert.Len(t, mesh.Positions, 3)
	assert.Len(t, mesh.Normals, 3)
	assert.Len(t, mesh.UVs, 3)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, mesh.Positions[2])
}

func TestLoadGLTFMesh_MissingNode(t *testing.T) {
	path := writeTestGLB(t, t.TempDir(), "tree")

	_, err := LoadGLTFMesh(path, "grass")
	assert.ErrorIs(t, err, ErrMeshNodeNotFound)
}

func TestLoadGLTFMesh_MissingFile(t *testing.T) {
	_, err := LoadGLTFMesh(filepath.Join(t.TempDir(), "nope.glb"), "grass")
	assert.Error(t, err)
}

func TestDecodeTextureFile(t *testing.T) {
	tex, err := DecodeTextureFile(writeTestPNG(t, t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, uint32(2), tex.Width)
	assert.Equal(t, uint32(2), tex.Height)
	require.Len(t, tex.Pixels, 2*2*4)
	// Opaque texel comes through unchanged.
	assert.Equal(t, []uint8{40, 160, 30, 255}, tex.Pixels[0:4])
	// Fully transparent texel is premultiplied to zero.
	assert.Equal(t, uint8(0), tex.Pixels[11])
}

func TestDecodeTexture_JPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.RGBA{A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	tex, err := DecodeTexture(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), tex.Width)
	assert.Equal(t, uint32(4), tex.Height)
	assert.Len(t, tex.Pixels, 8*4*4)
}

func TestDecodeTexture_Garbage(t *testing.T) {
	_, err := DecodeTexture(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestAssetServer_CreateIsReady(t *testing.T) {
	server := NewAssetServer(NewAssetLoader(1))
	id := server.CreateMesh(NewPlane(1, 1, 1, 1))

	status, err := server.Status(id)
	require.NoError(t, err)
	assert.Equal(t, LoadReady, status)

	mesh, err := server.Mesh(id)
	require.NoError(t, err)
	assert.Len(t, mesh.Positions, 4)

	_, err = server.Texture(id)
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func waitLoaded(t *testing.T, server *AssetServer, ids ...AssetId) {
	t.Helper()
	require.Eventually(t, func() bool {
		server.Poll()
		for _, id := range ids {
			if s, _ := server.Status(id); s == LoadPending {
				return false
			}
		}
		return true
	}, 5*time.Second, 5*time.Millisecond)
}

func TestAssetServer_AsyncLoads(t *testing.T) {
	dir := t.TempDir()
	server := NewAssetServer(NewAssetLoader(2))

	mesh := server.LoadMesh(writeTestGLB(t, dir, "grass"), "grass")
	tex := server.LoadTexture(writeTestPNG(t, dir))
	waitLoaded(t, server, mesh, tex)

	data, err := server.Mesh(mesh)
	require.NoError(t, err)
	assert.Len(t, data.Positions, 3)

	texture, err := server.Texture(tex)
	require.NoError(t, err)
	w, h := texture.Size()
	assert.Equal(t, uint32(2), w)
	assert.Equal(t, uint32(2), h)
}

func TestAssetServer_FailedLoad(t *testing.T) {
	dir := t.TempDir()
	server := NewAssetServer(NewAssetLoader(1))

	missing := server.LoadTexture(filepath.Join(dir, "missing.png"))
	badNode := server.LoadMesh(writeTestGLB(t, dir, "tree"), "grass")
	waitLoaded(t, server, missing, badNode)

	status, err := server.Status(missing)
	assert.Equal(t, LoadFailed, status)
	assert.ErrorIs(t, err, os.ErrNotExist)

	status, err = server.Status(badNode)
	assert.Equal(t, LoadFailed, status)
	assert.ErrorIs(t, err, ErrMeshNodeNotFound)

	_, err = server.Mesh(badNode)
	assert.ErrorIs(t, err, ErrUnknownAsset)
}
