package meadow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type AssetId string

var ErrUnknownAsset = errors.New("unknown asset")

type MeshAsset struct {
	version uint
	data    *MeshData
}

type TextureAsset struct {
	version uint
	texels  []uint8
	width   uint32
	height  uint32
}

func (t TextureAsset) Size() (uint32, uint32) {
	return t.width, t.height
}

// AssetServer stores decoded meshes and textures by id. Loads started through
// it complete on the loader's worker pool and are published by Poll on the
// main thread.
type AssetServer struct {
	mu       sync.RWMutex
	meshes   map[AssetId]MeshAsset
	textures map[AssetId]TextureAsset

	loader *AssetLoader
}

type AssetServerModule struct {
	Workers int
}

func NewAssetServer(loader *AssetLoader) *AssetServer {
	return &AssetServer{
		meshes:   make(map[AssetId]MeshAsset),
		textures: make(map[AssetId]TextureAsset),
		loader:   loader,
	}
}

func (server *AssetServer) CreateMesh(data *MeshData) AssetId {
	id := makeAssetId()
	server.storeMesh(id, data)
	return id
}

func (server *AssetServer) CreateTexture(texels []uint8, width, height uint32) AssetId {
	id := makeAssetId()
	server.storeTexture(id, texels, width, height)
	return id
}

func (server *AssetServer) storeMesh(id AssetId, data *MeshData) {
	server.mu.Lock()
	defer server.mu.Unlock()
	prev := server.meshes[id]
	server.meshes[id] = MeshAsset{version: prev.version + 1, data: data}
}

func (server *AssetServer) storeTexture(id AssetId, texels []uint8, width, height uint32) {
	server.mu.Lock()
	defer server.mu.Unlock()
	prev := server.textures[id]
	server.textures[id] = TextureAsset{
		version: prev.version + 1,
		texels:  texels,
		width:   width,
		height:  height,
	}
}

func (server *AssetServer) Mesh(id AssetId) (*MeshData, error) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	asset, ok := server.meshes[id]
	if !ok {
		return nil, fmt.Errorf("%w: mesh %s", ErrUnknownAsset, id)
	}
	return asset.data, nil
}

func (server *AssetServer) Texture(id AssetId) (TextureAsset, error) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	asset, ok := server.textures[id]
	if !ok {
		return TextureAsset{}, fmt.Errorf("%w: texture %s", ErrUnknownAsset, id)
	}
	return asset, nil
}

// LoadMesh reserves an id for the named node of a glTF file and decodes it in
// the background. The id resolves once Poll reports it ready.
func (server *AssetServer) LoadMesh(path, node string) AssetId {
	id := makeAssetId()
	server.loader.submit(id, func() (any, error) {
		return LoadGLTFMesh(path, node)
	})
	return id
}

// LoadTexture reserves an id for an image file and decodes it in the background.
func (server *AssetServer) LoadTexture(path string) AssetId {
	id := makeAssetId()
	server.loader.submit(id, func() (any, error) {
		return DecodeTextureFile(path)
	})
	return id
}

// Poll moves finished loads into the server. It must be called from the
// goroutine that owns the scene.
func (server *AssetServer) Poll() {
	for _, res := range server.loader.drain() {
		if res.err != nil {
			continue
		}
		switch v := res.value.(type) {
		case *MeshData:
			server.storeMesh(res.id, v)
		case *DecodedTexture:
			server.storeTexture(res.id, v.Pixels, v.Width, v.Height)
		}
	}
}

// Status reports the load state of an id started by LoadMesh or LoadTexture.
// Ids created synchronously are always ready.
func (server *AssetServer) Status(id AssetId) (LoadStatus, error) {
	return server.loader.status(id)
}

func (m AssetServerModule) Install(app *App, cmd *Commands) {
	app.addResources(NewAssetServer(NewAssetLoader(m.Workers)))
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
