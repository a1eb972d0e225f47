package meadow

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/meadow/gpu"
	"github.com/gekko3d/meadow/shaders"
)

var ErrSceneTornDown = errors.New("scene torn down")

var (
	meshVertexLayout = gpu.VertexLayout{
		Stride: meshVertexStride,
		Attributes: []gpu.VertexAttribute{
			{Format: gpu.VertexFormatFloat32x3, Offset: 0, Location: 0},
			{Format: gpu.VertexFormatFloat32x3, Offset: 12, Location: 1},
			{Format: gpu.VertexFormatFloat32x2, Offset: 24, Location: 2},
		},
	}
	offsetVertexLayout = gpu.VertexLayout{
		Stride:     12,
		Instanced:  true,
		Attributes: []gpu.VertexAttribute{{Format: gpu.VertexFormatFloat32x3, Location: 3}},
	}
	rotationVertexLayout = gpu.VertexLayout{
		Stride:     4,
		Instanced:  true,
		Attributes: []gpu.VertexAttribute{{Format: gpu.VertexFormatFloat32, Location: 4}},
	}

	cameraBindings = []gpu.BindingLayout{
		{Binding: 0, Kind: gpu.BindingUniform, Vertex: true, Fragment: true},
	}
	materialBindings = []gpu.BindingLayout{
		{Binding: 0, Kind: gpu.BindingUniform, Vertex: true, Fragment: true},
		{Binding: 1, Kind: gpu.BindingTexture, Fragment: true},
		{Binding: 2, Kind: gpu.BindingSampler, Fragment: true},
	}
)

var clearColor = [4]float64{0, 0, 0, 1}

type meshBuffers struct {
	vertex gpu.BufferID
	index  gpu.BufferID
	count  uint32
}

// materialDraw is everything needed to draw one Plane or Field payload.
type materialDraw struct {
	label       string
	pipeline    gpu.PipelineID
	cameraGroup gpu.BindGroupID
	group       gpu.BindGroupID
	uniform     gpu.BufferID
	mesh        meshBuffers
	material    *Material
	node        *Node

	// instanced draws only
	offsets   gpu.BufferID
	rotations gpu.BufferID
	instances uint32
	instanced bool
}

// Renderer owns every GPU resource of the scene and encodes one frame per
// call to Frame. Each handle it creates is released exactly once by Dispose.
type Renderer struct {
	device gpu.Device
	log    Logger
	stats  *FrameStats

	buffers    map[gpu.BufferID]struct{}
	textures   map[gpu.TextureID]struct{}
	pipelines  map[gpu.PipelineID]struct{}
	bindGroups map[gpu.BindGroupID]struct{}
	disposed   bool

	width, height int
	sceneTarget   gpu.TextureID

	camera gpu.BufferID

	skyPipeline    gpu.PipelineID
	skyCameraGroup gpu.BindGroupID
	skyGroup       gpu.BindGroupID
	skyUniform     gpu.BufferID
	skyPayload     *Sky

	postPipeline gpu.PipelineID
	postGroup    gpu.BindGroupID
	postUniform  gpu.BufferID

	shaderPipelines map[string]gpu.PipelineID
	cameraGroups    map[gpu.PipelineID]gpu.BindGroupID
	meshes          map[AssetId]meshBuffers
	assetTextures   map[AssetId]gpu.TextureID
	draws           map[any]*materialDraw
}

func NewRenderer(device gpu.Device, log Logger, stats *FrameStats) *Renderer {
	if log == nil {
		log = NewNopLogger()
	}
	if stats == nil {
		stats = &FrameStats{}
	}
	return &Renderer{
		device:          device,
		log:             log,
		stats:           stats,
		buffers:         make(map[gpu.BufferID]struct{}),
		textures:        make(map[gpu.TextureID]struct{}),
		pipelines:       make(map[gpu.PipelineID]struct{}),
		bindGroups:      make(map[gpu.BindGroupID]struct{}),
		shaderPipelines: make(map[string]gpu.PipelineID),
		cameraGroups:    make(map[gpu.PipelineID]gpu.BindGroupID),
		meshes:          make(map[AssetId]meshBuffers),
		assetTextures:   make(map[AssetId]gpu.TextureID),
		draws:           make(map[any]*materialDraw),
	}
}

func (r *Renderer) createBuffer(desc gpu.BufferDesc) (gpu.BufferID, error) {
	id, err := r.device.CreateBuffer(desc)
	if err != nil {
		return 0, fmt.Errorf("create buffer %s: %w", desc.Label, err)
	}
	r.buffers[id] = struct{}{}
	return id, nil
}

func (r *Renderer) createTexture(desc gpu.TextureDesc) (gpu.TextureID, error) {
	id, err := r.device.CreateTexture(desc)
	if err != nil {
		return 0, fmt.Errorf("create texture %s: %w", desc.Label, err)
	}
	r.textures[id] = struct{}{}
	return id, nil
}

func (r *Renderer) createPipeline(desc gpu.PipelineDesc) (gpu.PipelineID, error) {
	id, err := r.device.CreatePipeline(desc)
	if err != nil {
		return 0, fmt.Errorf("create pipeline %s: %w", desc.Label, err)
	}
	r.pipelines[id] = struct{}{}
	return id, nil
}

func (r *Renderer) createBindGroup(pipeline gpu.PipelineID, group uint32, entries []gpu.BindEntry) (gpu.BindGroupID, error) {
	id, err := r.device.CreateBindGroup(pipeline, group, entries)
	if err != nil {
		return 0, fmt.Errorf("create bind group %d: %w", group, err)
	}
	r.bindGroups[id] = struct{}{}
	return id, nil
}

func (r *Renderer) releaseTexture(id gpu.TextureID) {
	if _, ok := r.textures[id]; ok {
		delete(r.textures, id)
		r.device.ReleaseTexture(id)
	}
}

func (r *Renderer) releaseBindGroup(id gpu.BindGroupID) {
	if _, ok := r.bindGroups[id]; ok {
		delete(r.bindGroups, id)
		r.device.ReleaseBindGroup(id)
	}
}

// Prepare creates the resources that do not depend on loaded assets: the
// camera uniform, the sky and the post-process chain.
func (r *Renderer) Prepare(scene *SceneGraph, width, height int) error {
	if r.disposed {
		return ErrSceneTornDown
	}
	r.width, r.height = width, height

	var err error
	r.camera, err = r.createBuffer(gpu.BufferDesc{
		Label:    "Camera",
		Usage:    gpu.BufferUsageUniform,
		Contents: uniformBytes(scene.Camera.uniform()),
	})
	if err != nil {
		return err
	}

	if scene.Sky != nil {
		if err := r.prepareSky(scene.Sky); err != nil {
			return err
		}
	}
	return r.preparePost(scene.Post)
}

func (r *Renderer) prepareSky(sky *Sky) error {
	var err error
	r.skyPipeline, err = r.createPipeline(gpu.PipelineDesc{
		Label:      "Sky",
		Shader:     shaders.SkyWGSL,
		BindGroups: [][]gpu.BindingLayout{cameraBindings, {{Binding: 0, Kind: gpu.BindingUniform, Fragment: true}}},
		Offscreen:  true,
	})
	if err != nil {
		return err
	}
	r.skyUniform, err = r.createBuffer(gpu.BufferDesc{
		Label:    "Sky",
		Usage:    gpu.BufferUsageUniform,
		Contents: uniformBytes(sky.uniform()),
	})
	if err != nil {
		return err
	}
	r.skyCameraGroup, err = r.createBindGroup(r.skyPipeline, 0, []gpu.BindEntry{{Binding: 0, Buffer: r.camera}})
	if err != nil {
		return err
	}
	r.skyGroup, err = r.createBindGroup(r.skyPipeline, 1, []gpu.BindEntry{{Binding: 0, Buffer: r.skyUniform}})
	if err != nil {
		return err
	}
	r.skyPayload = sky
	return nil
}

func (r *Renderer) preparePost(post *PostProcess) error {
	var err error
	r.postPipeline, err = r.createPipeline(gpu.PipelineDesc{
		Label:      "PostProcess",
		Shader:     shaders.FXAAWGSL,
		BindGroups: [][]gpu.BindingLayout{materialBindings},
	})
	if err != nil {
		return err
	}
	r.postUniform, err = r.createBuffer(gpu.BufferDesc{
		Label:    "PostProcess",
		Usage:    gpu.BufferUsageUniform,
		Contents: uniformBytes(post.uniform()),
	})
	if err != nil {
		return err
	}
	return r.createSceneTarget()
}

// createSceneTarget (re)creates the offscreen color target at the current
// viewport size and the post-process bind group that samples it.
func (r *Renderer) createSceneTarget() error {
	var err error
	r.sceneTarget, err = r.createTexture(gpu.TextureDesc{
		Label:        "SceneTarget",
		Width:        uint32(r.width),
		Height:       uint32(r.height),
		RenderTarget: true,
	})
	if err != nil {
		return err
	}
	r.postGroup, err = r.createBindGroup(r.postPipeline, 0, []gpu.BindEntry{
		{Binding: 0, Buffer: r.postUniform},
		{Binding: 1, Texture: r.sceneTarget},
		{Binding: 2, Sampler: r.sceneTarget},
	})
	return err
}

// PrepareSuspended uploads the meshes, textures and instance data of every
// payload inside the scene's suspense boundary. It runs once, after the
// boundary resolves.
func (r *Renderer) PrepareSuspended(scene *SceneGraph, assets *AssetServer) error {
	if r.disposed {
		return ErrSceneTornDown
	}
	var err error
	scene.Root.Walk(func(n *Node) bool {
		if err != nil {
			return false
		}
		switch p := n.Payload.(type) {
		case *Plane:
			err = r.preparePlane(n, p, assets)
		case *Field:
			err = r.prepareField(n, p, assets)
		}
		return true
	})
	return err
}

func (r *Renderer) preparePlane(n *Node, plane *Plane, assets *AssetServer) error {
	draw, err := r.prepareMaterialDraw(n, plane.Mesh, plane.Material, assets, false)
	if err != nil {
		return fmt.Errorf("plane %s: %w", n.Name, err)
	}
	r.draws[plane] = draw
	return nil
}

func (r *Renderer) prepareField(n *Node, field *Field, assets *AssetServer) error {
	draw, err := r.prepareMaterialDraw(n, field.Mesh, field.Material, assets, true)
	if err != nil {
		return fmt.Errorf("field %s: %w", n.Name, err)
	}
	draw.instances = uint32(field.InstanceCount())

	// Zero-sized buffers are invalid; an empty field simply has no draw.
	if draw.instances > 0 {
		draw.offsets, err = r.createBuffer(gpu.BufferDesc{
			Label:    n.Name + "Offsets",
			Usage:    gpu.BufferUsageVertex,
			Contents: field.Instances.offsetBytes(),
		})
		if err != nil {
			return err
		}
		draw.rotations, err = r.createBuffer(gpu.BufferDesc{
			Label:    n.Name + "Rotations",
			Usage:    gpu.BufferUsageVertex,
			Contents: field.Instances.rotationBytes(),
		})
		if err != nil {
			return err
		}
	}
	r.draws[field] = draw
	return nil
}

func (r *Renderer) prepareMaterialDraw(n *Node, meshID AssetId, material *Material, assets *AssetServer, instanced bool) (*materialDraw, error) {
	if material == nil || material.Uniforms == nil {
		return nil, errors.New("material with uniforms required")
	}

	pipeline, err := r.materialPipeline(material, instanced)
	if err != nil {
		return nil, err
	}
	mesh, err := r.meshBuffers(meshID, assets)
	if err != nil {
		return nil, err
	}
	texture, err := r.assetTexture(material.Uniforms.Texture, assets)
	if err != nil {
		return nil, err
	}

	draw := &materialDraw{
		label:     n.Name,
		pipeline:  pipeline,
		mesh:      mesh,
		material:  material,
		node:      n,
		instanced: instanced,
	}
	draw.uniform, err = r.createBuffer(gpu.BufferDesc{
		Label:    n.Name + "Material",
		Usage:    gpu.BufferUsageUniform,
		Contents: uniformBytes(materialUniform{Model: n.WorldMatrix(), Time: material.Uniforms.Time}),
	})
	if err != nil {
		return nil, err
	}
	draw.group, err = r.createBindGroup(pipeline, 1, []gpu.BindEntry{
		{Binding: 0, Buffer: draw.uniform},
		{Binding: 1, Texture: texture},
		{Binding: 2, Sampler: texture},
	})
	if err != nil {
		return nil, err
	}
	draw.cameraGroup = r.cameraGroups[pipeline]
	return draw, nil
}

// materialPipeline returns the pipeline for a material's shader, creating it
// and its camera bind group on first use.
func (r *Renderer) materialPipeline(material *Material, instanced bool) (gpu.PipelineID, error) {
	if id, ok := r.shaderPipelines[material.Shader]; ok {
		return id, nil
	}
	src, ok := shaders.All[material.Shader]
	if !ok {
		return 0, fmt.Errorf("unknown shader %q", material.Shader)
	}

	layouts := []gpu.VertexLayout{meshVertexLayout}
	if instanced {
		layouts = append(layouts, offsetVertexLayout, rotationVertexLayout)
	}
	cull := gpu.CullBack
	if material.DoubleSided {
		cull = gpu.CullNone
	}
	id, err := r.createPipeline(gpu.PipelineDesc{
		Label:         material.Name,
		Shader:        src,
		VertexLayouts: layouts,
		BindGroups:    [][]gpu.BindingLayout{cameraBindings, materialBindings},
		Cull:          cull,
		Blend:         material.Transparent,
		DepthTest:     true,
		DepthWrite:    true,
		Offscreen:     true,
	})
	if err != nil {
		return 0, err
	}
	group, err := r.createBindGroup(id, 0, []gpu.BindEntry{{Binding: 0, Buffer: r.camera}})
	if err != nil {
		return 0, err
	}
	r.shaderPipelines[material.Shader] = id
	r.cameraGroups[id] = group
	return id, nil
}

func (r *Renderer) meshBuffers(id AssetId, assets *AssetServer) (meshBuffers, error) {
	if mb, ok := r.meshes[id]; ok {
		return mb, nil
	}
	data, err := assets.Mesh(id)
	if err != nil {
		return meshBuffers{}, err
	}
	if err := data.Validate(); err != nil {
		return meshBuffers{}, err
	}
	vertex, err := r.createBuffer(gpu.BufferDesc{
		Label:    "MeshVertices",
		Usage:    gpu.BufferUsageVertex,
		Contents: data.interleave(),
	})
	if err != nil {
		return meshBuffers{}, err
	}
	index, err := r.createBuffer(gpu.BufferDesc{
		Label:    "MeshIndices",
		Usage:    gpu.BufferUsageIndex,
		Contents: data.indexBytes(),
	})
	if err != nil {
		return meshBuffers{}, err
	}
	mb := meshBuffers{vertex: vertex, index: index, count: uint32(data.IndexCount())}
	r.meshes[id] = mb
	return mb, nil
}

func (r *Renderer) assetTexture(id AssetId, assets *AssetServer) (gpu.TextureID, error) {
	if tex, ok := r.assetTextures[id]; ok {
		return tex, nil
	}
	asset, err := assets.Texture(id)
	if err != nil {
		return 0, err
	}
	w, h := asset.Size()
	tex, err := r.createTexture(gpu.TextureDesc{
		Label:  string(id),
		Width:  w,
		Height: h,
		Pixels: asset.texels,
	})
	if err != nil {
		return 0, err
	}
	r.assetTextures[id] = tex
	return tex, nil
}

// Resize recreates the size-dependent resources. The post-process texel
// size must already reflect the new viewport.
func (r *Renderer) Resize(scene *SceneGraph, width, height int) error {
	if r.disposed {
		return ErrSceneTornDown
	}
	if width <= 0 || height <= 0 || (width == r.width && height == r.height) {
		return nil
	}
	r.width, r.height = width, height
	r.device.Resize(width, height)

	r.releaseBindGroup(r.postGroup)
	r.releaseTexture(r.sceneTarget)
	if err := r.createSceneTarget(); err != nil {
		return err
	}
	return r.device.WriteBuffer(r.postUniform, 0, uniformBytes(scene.Post.uniform()))
}

// frameContents is what the scene graph contributes to one frame. Subtrees
// under an unresolved suspense boundary contribute nothing.
type frameContents struct {
	sky      *Sky
	ambient  *AmbientLight
	payloads []any
}

func collectFrame(root *Node) frameContents {
	var fc frameContents
	root.Walk(func(n *Node) bool {
		switch p := n.Payload.(type) {
		case *Suspense:
			return p.Resolved()
		case *Sky:
			fc.sky = p
		case *AmbientLight:
			fc.ambient = p
		case *Plane, *Field:
			fc.payloads = append(fc.payloads, p)
		}
		return true
	})
	return fc
}

// Frame uploads the per-frame uniforms and submits the scene and
// post-process passes.
func (r *Renderer) Frame(scene *SceneGraph) error {
	if r.disposed {
		return ErrSceneTornDown
	}
	start := time.Now()

	if err := r.device.WriteBuffer(r.camera, 0, uniformBytes(scene.Camera.uniform())); err != nil {
		return err
	}

	fc := collectFrame(scene.Root)
	ambient := mgl32.Vec4{1, 1, 1, 1}
	if fc.ambient != nil {
		ambient = fc.ambient.radiance()
	}

	scenePass := gpu.Pass{
		Label:      "Scene",
		Target:     r.sceneTarget,
		ClearColor: clearColor,
		Depth:      true,
	}
	if fc.sky != nil && fc.sky == r.skyPayload {
		scenePass.Draws = append(scenePass.Draws, gpu.Draw{
			Label:         "Sky",
			Pipeline:      r.skyPipeline,
			BindGroups:    []gpu.BindGroupID{r.skyCameraGroup, r.skyGroup},
			VertexCount:   3,
			InstanceCount: 1,
		})
	}

	instances := 0
	for _, payload := range fc.payloads {
		d, ok := r.draws[payload]
		if !ok {
			continue
		}
		if d.instanced && d.instances == 0 {
			continue
		}
		u := materialUniform{
			Model:   d.node.WorldMatrix(),
			Ambient: ambient,
			Time:    d.material.Uniforms.Time,
		}
		if err := r.device.WriteBuffer(d.uniform, 0, uniformBytes(u)); err != nil {
			return err
		}

		draw := gpu.Draw{
			Label:         d.label,
			Pipeline:      d.pipeline,
			BindGroups:    []gpu.BindGroupID{d.cameraGroup, d.group},
			VertexBuffers: []gpu.BufferID{d.mesh.vertex},
			Index:         &gpu.IndexedDraw{Buffer: d.mesh.index, Count: d.mesh.count},
			InstanceCount: 1,
		}
		if d.instanced {
			draw.VertexBuffers = append(draw.VertexBuffers, d.offsets, d.rotations)
			draw.InstanceCount = d.instances
		}
		instances += int(draw.InstanceCount)
		scenePass.Draws = append(scenePass.Draws, draw)
	}

	postPass := gpu.Pass{
		Label:      "PostProcess",
		ClearColor: clearColor,
		Draws: []gpu.Draw{{
			Label:         "FXAA",
			Pipeline:      r.postPipeline,
			BindGroups:    []gpu.BindGroupID{r.postGroup},
			VertexCount:   3,
			InstanceCount: 1,
		}},
	}

	if err := r.device.Submit([]gpu.Pass{scenePass, postPass}); err != nil {
		return fmt.Errorf("submit frame: %w", err)
	}
	r.stats.record(len(scenePass.Draws)+len(postPass.Draws), instances, time.Since(start))
	return nil
}

// Dispose releases every resource created by the renderer. Calling it again
// does nothing.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true

	for id := range r.bindGroups {
		r.device.ReleaseBindGroup(id)
	}
	for id := range r.pipelines {
		r.device.ReleasePipeline(id)
	}
	for id := range r.buffers {
		r.device.ReleaseBuffer(id)
	}
	for id := range r.textures {
		r.device.ReleaseTexture(id)
	}
	released := len(r.bindGroups) + len(r.pipelines) + len(r.buffers) + len(r.textures)
	r.log.Debugf("renderer released %d gpu resources", released)

	clear(r.bindGroups)
	clear(r.pipelines)
	clear(r.buffers)
	clear(r.textures)
	clear(r.draws)
	clear(r.meshes)
	clear(r.assetTextures)
	clear(r.shaderPipelines)
	clear(r.cameraGroups)
}

func (r *Renderer) Disposed() bool {
	return r.disposed
}
