// Package wgpudevice implements gpu.Device on top of WebGPU (wgpu-native via
// cogentcore/webgpu) rendering into a GLFW window surface.
package wgpudevice

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/meadow/gpu"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

type texture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

type pipeline struct {
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.PipelineLayout
	groups   []*wgpu.BindGroupLayout
}

type Device struct {
	instance      *wgpu.Instance
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	nextID     uint64
	buffers    map[gpu.BufferID]*wgpu.Buffer
	textures   map[gpu.TextureID]*texture
	pipelines  map[gpu.PipelineID]*pipeline
	bindGroups map[gpu.BindGroupID]*wgpu.BindGroup
}

var _ gpu.Device = (*Device)(nil)

// New creates a device presenting to the given window. The caller keeps
// ownership of the window and must call Release before destroying it.
func New(window *glfw.Window) (*Device, error) {
	instance := wgpu.CreateInstance(nil)
	// wraps GLFW window into a wgpu surface.
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	// finds a suitable GPU (discrete GPU preferred)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		surface.Release()
		instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Meadow Device",
	})
	if err != nil {
		adapter.Release()
		surface.Release()
		instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}

	width, height := window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	// defines how the swapchain behaves (size, format, vsync)
	surfaceConfig := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(max(width, 1)),
		Height:      uint32(max(height, 1)),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, surfaceConfig)

	d := &Device{
		instance:      instance,
		surface:       surface,
		adapter:       adapter,
		device:        device,
		queue:         device.GetQueue(),
		surfaceConfig: surfaceConfig,
		buffers:       make(map[gpu.BufferID]*wgpu.Buffer),
		textures:      make(map[gpu.TextureID]*texture),
		pipelines:     make(map[gpu.PipelineID]*pipeline),
		bindGroups:    make(map[gpu.BindGroupID]*wgpu.BindGroup),
	}
	if err := d.createDepth(); err != nil {
		d.Release()
		return nil, err
	}
	return d, nil
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) createDepth() error {
	if d.depthView != nil {
		d.depthView.Release()
		d.depthView = nil
	}
	if d.depthTexture != nil {
		d.depthTexture.Release()
		d.depthTexture = nil
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth",
		Size: wgpu.Extent3D{
			Width:              d.surfaceConfig.Width,
			Height:             d.surfaceConfig.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("create depth view: %w", err)
	}
	d.depthTexture = tex
	d.depthView = view
	return nil
}

func bufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	usage := wgpu.BufferUsageCopyDst
	if u&gpu.BufferUsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if u&gpu.BufferUsageIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}
	if u&gpu.BufferUsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	return usage
}

func (d *Device) CreateBuffer(desc gpu.BufferDesc) (gpu.BufferID, error) {
	if len(desc.Contents) == 0 {
		return 0, fmt.Errorf("create buffer %q: empty contents", desc.Label)
	}
	buf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    desc.Label,
		Contents: desc.Contents,
		Usage:    bufferUsage(desc.Usage),
	})
	if err != nil {
		return 0, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	id := gpu.BufferID(d.id())
	d.buffers[id] = buf
	return id, nil
}

func (d *Device) WriteBuffer(id gpu.BufferID, offset uint64, data []byte) error {
	buf, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("write buffer %d: %w", id, gpu.ErrUnknownHandle)
	}
	return d.queue.WriteBuffer(buf, offset, data)
}

func (d *Device) ReleaseBuffer(id gpu.BufferID) {
	if buf, ok := d.buffers[id]; ok {
		buf.Release()
		delete(d.buffers, id)
	}
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.TextureID, error) {
	extent := wgpu.Extent3D{
		Width:              desc.Width,
		Height:             desc.Height,
		DepthOrArrayLayers: 1,
	}

	format := wgpu.TextureFormatRGBA8UnormSrgb
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if desc.RenderTarget {
		// render targets share the swapchain format so one pipeline serves both
		format = d.surfaceConfig.Format
		usage = wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return 0, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}

	if !desc.RenderTarget {
		err = d.queue.WriteTexture(
			tex.AsImageCopy(),
			desc.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  desc.Width * 4,
				RowsPerImage: desc.Height,
			},
			&extent,
		)
		if err != nil {
			tex.Release()
			return 0, fmt.Errorf("upload texture %q: %w", desc.Label, err)
		}
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("create view %q: %w", desc.Label, err)
	}

	addressMode := wgpu.AddressModeRepeat
	if desc.RenderTarget {
		addressMode = wgpu.AddressModeClampToEdge
	}
	sampler, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label + " Sampler",
		AddressModeU:  addressMode,
		AddressModeV:  addressMode,
		AddressModeW:  addressMode,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return 0, fmt.Errorf("create sampler %q: %w", desc.Label, err)
	}

	id := gpu.TextureID(d.id())
	d.textures[id] = &texture{texture: tex, view: view, sampler: sampler}
	return id, nil
}

func (d *Device) ReleaseTexture(id gpu.TextureID) {
	if t, ok := d.textures[id]; ok {
		t.sampler.Release()
		t.view.Release()
		t.texture.Release()
		delete(d.textures, id)
	}
}

func vertexFormat(f gpu.VertexFormat) wgpu.VertexFormat {
	switch f {
	case gpu.VertexFormatFloat32:
		return wgpu.VertexFormatFloat32
	case gpu.VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case gpu.VertexFormatFloat32x3:
		return wgpu.VertexFormatFloat32x3
	case gpu.VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	default:
		panic(fmt.Sprintf("unsupported vertex format: %d", f))
	}
}

func bindGroupLayoutEntry(b gpu.BindingLayout) wgpu.BindGroupLayoutEntry {
	var visibility wgpu.ShaderStage
	if b.Vertex {
		visibility |= wgpu.ShaderStageVertex
	}
	if b.Fragment {
		visibility |= wgpu.ShaderStageFragment
	}

	entry := wgpu.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: visibility,
	}
	switch b.Kind {
	case gpu.BindingUniform:
		entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
	case gpu.BindingTexture:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		}
	case gpu.BindingSampler:
		entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
	}
	return entry
}

func (d *Device) CreatePipeline(desc gpu.PipelineDesc) (gpu.PipelineID, error) {
	shader, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Shader},
	})
	if err != nil {
		return 0, fmt.Errorf("compile shader %q: %w", desc.Label, err)
	}
	defer shader.Release()

	p := &pipeline{}
	release := func() {
		for _, g := range p.groups {
			g.Release()
		}
		if p.layout != nil {
			p.layout.Release()
		}
	}

	for i, group := range desc.BindGroups {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(group))
		for _, b := range group {
			entries = append(entries, bindGroupLayoutEntry(b))
		}
		bgl, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s BGL%d", desc.Label, i),
			Entries: entries,
		})
		if err != nil {
			release()
			return 0, fmt.Errorf("bind group layout %d of %q: %w", i, desc.Label, err)
		}
		p.groups = append(p.groups, bgl)
	}

	p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + " Layout",
		BindGroupLayouts: p.groups,
	})
	if err != nil {
		release()
		return 0, fmt.Errorf("pipeline layout %q: %w", desc.Label, err)
	}

	layouts := make([]wgpu.VertexBufferLayout, 0, len(desc.VertexLayouts))
	for _, l := range desc.VertexLayouts {
		stepMode := wgpu.VertexStepModeVertex
		if l.Instanced {
			stepMode = wgpu.VertexStepModeInstance
		}
		attrs := make([]wgpu.VertexAttribute, 0, len(l.Attributes))
		for _, a := range l.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			})
		}
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: l.Stride,
			StepMode:    stepMode,
			Attributes:  attrs,
		})
	}

	target := wgpu.ColorTargetState{
		Format:    d.surfaceConfig.Format,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if desc.Blend {
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
		}
	}

	cull := wgpu.CullModeNone
	if desc.Cull == gpu.CullBack {
		cull = wgpu.CullModeBack
	}

	// Offscreen passes always carry a depth attachment, so their pipelines
	// must declare one even when they ignore it.
	var depth *wgpu.DepthStencilState
	if desc.Offscreen || desc.DepthTest || desc.DepthWrite {
		compare := wgpu.CompareFunctionAlways
		if desc.DepthTest {
			compare = wgpu.CompareFunctionLess
		}
		depth = &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      compare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	rp, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    layouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cull,
		},
		DepthStencil: depth,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		release()
		return 0, fmt.Errorf("create pipeline %q: %w", desc.Label, err)
	}
	p.pipeline = rp

	id := gpu.PipelineID(d.id())
	d.pipelines[id] = p
	return id, nil
}

func (d *Device) ReleasePipeline(id gpu.PipelineID) {
	if p, ok := d.pipelines[id]; ok {
		p.pipeline.Release()
		p.layout.Release()
		for _, g := range p.groups {
			g.Release()
		}
		delete(d.pipelines, id)
	}
}

func (d *Device) CreateBindGroup(pipelineID gpu.PipelineID, group uint32, entries []gpu.BindEntry) (gpu.BindGroupID, error) {
	p, ok := d.pipelines[pipelineID]
	if !ok || int(group) >= len(p.groups) {
		return 0, fmt.Errorf("bind group %d of pipeline %d: %w", group, pipelineID, gpu.ErrUnknownHandle)
	}

	wgpuEntries := make([]wgpu.BindGroupEntry, 0, len(entries))
	for _, e := range entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != 0:
			buf, ok := d.buffers[e.Buffer]
			if !ok {
				return 0, fmt.Errorf("bind buffer %d: %w", e.Buffer, gpu.ErrUnknownHandle)
			}
			entry.Buffer = buf
			entry.Size = buf.GetSize()
		case e.Texture != 0:
			t, ok := d.textures[e.Texture]
			if !ok {
				return 0, fmt.Errorf("bind texture %d: %w", e.Texture, gpu.ErrUnknownHandle)
			}
			entry.TextureView = t.view
		case e.Sampler != 0:
			t, ok := d.textures[e.Sampler]
			if !ok {
				return 0, fmt.Errorf("bind sampler %d: %w", e.Sampler, gpu.ErrUnknownHandle)
			}
			entry.Sampler = t.sampler
		}
		wgpuEntries = append(wgpuEntries, entry)
	}

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  p.groups[group],
		Entries: wgpuEntries,
	})
	if err != nil {
		return 0, fmt.Errorf("create bind group: %w", err)
	}
	id := gpu.BindGroupID(d.id())
	d.bindGroups[id] = bg
	return id, nil
}

func (d *Device) ReleaseBindGroup(id gpu.BindGroupID) {
	if bg, ok := d.bindGroups[id]; ok {
		bg.Release()
		delete(d.bindGroups, id)
	}
}

func (d *Device) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	d.surfaceConfig.Width = uint32(width)
	d.surfaceConfig.Height = uint32(height)
	d.surface.Configure(d.adapter, d.device, d.surfaceConfig)
	if err := d.createDepth(); err != nil {
		panic(err)
	}
}

func (d *Device) Submit(passes []gpu.Pass) error {
	nextTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create surface view: %w", err)
	}
	defer view.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	for _, p := range passes {
		if err := d.encodePass(encoder, view, p); err != nil {
			return err
		}
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer cmd.Release()

	d.queue.Submit(cmd)
	d.surface.Present()
	return nil
}

func (d *Device) encodePass(encoder *wgpu.CommandEncoder, surfaceView *wgpu.TextureView, p gpu.Pass) error {
	target := surfaceView
	if p.Target != 0 {
		t, ok := d.textures[p.Target]
		if !ok {
			return fmt.Errorf("pass %q target %d: %w", p.Label, p.Target, gpu.ErrUnknownHandle)
		}
		target = t.view
	}

	desc := &wgpu.RenderPassDescriptor{
		Label: p.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: p.ClearColor[0], G: p.ClearColor[1], B: p.ClearColor[2], A: p.ClearColor[3]},
		}},
	}
	if p.Depth {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}

	pass := encoder.BeginRenderPass(desc)
	defer pass.Release()

	for _, draw := range p.Draws {
		pl, ok := d.pipelines[draw.Pipeline]
		if !ok {
			return fmt.Errorf("draw %q pipeline %d: %w", draw.Label, draw.Pipeline, gpu.ErrUnknownHandle)
		}
		pass.SetPipeline(pl.pipeline)
		for i, bgID := range draw.BindGroups {
			bg, ok := d.bindGroups[bgID]
			if !ok {
				return fmt.Errorf("draw %q bind group %d: %w", draw.Label, bgID, gpu.ErrUnknownHandle)
			}
			pass.SetBindGroup(uint32(i), bg, nil)
		}
		for slot, bufID := range draw.VertexBuffers {
			buf, ok := d.buffers[bufID]
			if !ok {
				return fmt.Errorf("draw %q vertex buffer %d: %w", draw.Label, bufID, gpu.ErrUnknownHandle)
			}
			pass.SetVertexBuffer(uint32(slot), buf, 0, wgpu.WholeSize)
		}
		if draw.Index != nil {
			ib, ok := d.buffers[draw.Index.Buffer]
			if !ok {
				return fmt.Errorf("draw %q index buffer %d: %w", draw.Label, draw.Index.Buffer, gpu.ErrUnknownHandle)
			}
			pass.SetIndexBuffer(ib, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			pass.DrawIndexed(draw.Index.Count, draw.InstanceCount, 0, 0, 0)
		} else {
			pass.Draw(draw.VertexCount, draw.InstanceCount, 0, 0)
		}
	}

	if err := pass.End(); err != nil {
		return fmt.Errorf("end pass %q: %w", p.Label, err)
	}
	return nil
}

// Release frees the surface and device. Resources created through the
// gpu.Device methods must be released by their owners first.
func (d *Device) Release() {
	if d.depthView != nil {
		d.depthView.Release()
		d.depthView = nil
	}
	if d.depthTexture != nil {
		d.depthTexture.Release()
		d.depthTexture = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

// Live reports how many resources are still held, for leak checks at shutdown.
func (d *Device) Live() int {
	return len(d.buffers) + len(d.textures) + len(d.pipelines) + len(d.bindGroups)
}
