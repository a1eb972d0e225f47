// Package gpu describes the GPU operations the scene renderer needs, independent
// of the graphics API. Handles are opaque ids; zero is never a valid handle.
package gpu

import "errors"

type (
	BufferID    uint64
	TextureID   uint64
	PipelineID  uint64
	BindGroupID uint64
)

var ErrUnknownHandle = errors.New("gpu: unknown handle")

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
)

type BufferDesc struct {
	Label    string
	Usage    BufferUsage
	Contents []byte
}

type TextureDesc struct {
	Label  string
	Width  uint32
	Height uint32
	// RGBA8 texels, row-major, Width*Height*4 bytes. Nil for render targets.
	Pixels []byte
	// RenderTarget textures can be drawn into and sampled afterwards.
	RenderTarget bool
}

type VertexFormat uint32

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

type VertexAttribute struct {
	Format   VertexFormat
	Offset   uint64
	Location uint32
}

type VertexLayout struct {
	Stride     uint64
	Instanced  bool
	Attributes []VertexAttribute
}

type BindingKind uint32

const (
	BindingUniform BindingKind = iota
	BindingTexture
	BindingSampler
)

type BindingLayout struct {
	Binding  uint32
	Kind     BindingKind
	Vertex   bool
	Fragment bool
}

type CullMode uint32

const (
	CullNone CullMode = iota
	CullBack
)

type PipelineDesc struct {
	Label string
	// WGSL source with vs_main and fs_main entry points.
	Shader        string
	VertexLayouts []VertexLayout
	BindGroups    [][]BindingLayout
	Cull          CullMode
	Blend         bool
	DepthTest     bool
	DepthWrite    bool
	// Offscreen renders into RenderTarget textures instead of the swapchain.
	Offscreen bool
}

// BindEntry binds exactly one of Buffer, Texture or Sampler. Sampler binds the
// sampler owned by the given texture.
type BindEntry struct {
	Binding uint32
	Buffer  BufferID
	Texture TextureID
	Sampler TextureID
}

type IndexedDraw struct {
	Buffer BufferID
	Count  uint32
}

type Draw struct {
	Label         string
	Pipeline      PipelineID
	BindGroups    []BindGroupID
	VertexBuffers []BufferID
	// When Index is nil, VertexCount vertices are drawn.
	Index         *IndexedDraw
	VertexCount   uint32
	InstanceCount uint32
}

type Pass struct {
	Label string
	// Target zero means the swapchain surface.
	Target     TextureID
	ClearColor [4]float64
	Depth      bool
	Draws      []Draw
}

// Device creates and releases GPU resources and submits frames. Every Create
// is matched by exactly one Release by the owner of the returned handle.
type Device interface {
	CreateBuffer(desc BufferDesc) (BufferID, error)
	WriteBuffer(id BufferID, offset uint64, data []byte) error
	ReleaseBuffer(id BufferID)

	CreateTexture(desc TextureDesc) (TextureID, error)
	ReleaseTexture(id TextureID)

	CreatePipeline(desc PipelineDesc) (PipelineID, error)
	ReleasePipeline(id PipelineID)

	CreateBindGroup(pipeline PipelineID, group uint32, entries []BindEntry) (BindGroupID, error)
	ReleaseBindGroup(id BindGroupID)

	// Submit encodes passes in order and presents the surface.
	Submit(passes []Pass) error
	// Resize reconfigures the surface; render targets are owned by the caller.
	Resize(width, height int)
}
