package meadow

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/meadow/gpu"
)

// SceneGraph is the composed scene. The typed fields point into Root for
// quick access; Root is what the renderer walks.
type SceneGraph struct {
	Root     *Node
	Camera   *Camera
	Controls *OrbitControls
	Sky      *Sky
	Suspense *Suspense
	Ambient  *AmbientLight
	Ground   *Plane
	Field    *Field
	Post     *PostProcess
	Uniforms *UniformSet
}

// Compose builds the scene and starts loading the assets it depends on.
// The ground, the light and the field sit behind a suspense boundary that
// resolves once the grass mesh and texture are ready.
func Compose(cfg Config, assets *AssetServer, width, height int, rng *rand.Rand) (*SceneGraph, error) {
	mesh := assets.LoadMesh(cfg.Assets.MeshPath, cfg.Assets.MeshNode)
	texture := assets.LoadTexture(cfg.Assets.TexturePath)
	groundMesh := assets.CreateMesh(NewPlane(cfg.Ground.Width, cfg.Ground.Depth, 1, 1))

	uniforms := NewUniformSet(cfg.Animation.InitialTime, texture)

	field, err := NewField(cfg.Field, mesh, &Material{
		Name:        "Grass",
		Shader:      "grass",
		Uniforms:    uniforms,
		Transparent: true,
		DoubleSided: true,
	}, rng)
	if err != nil {
		return nil, err
	}
	ground := &Plane{
		Mesh: groundMesh,
		Material: &Material{
			Name:     "Ground",
			Shader:   "ground",
			Uniforms: uniforms,
		},
	}

	camera := NewCamera(cfg.Camera, width, height)
	controls := NewOrbitControls(camera, cfg.Controls)
	sky := NewSky(cfg.Sky)
	ambient := &AmbientLight{
		Color:     mgl32.Vec3(cfg.AmbientLight.Color),
		Intensity: cfg.AmbientLight.Intensity,
	}
	suspense := NewSuspense(mesh, texture)

	groundNode := NewNode("Ground", ground)
	groundNode.Transform = EulerTransform(mgl32.Vec3{}, cfg.Ground.RotationX, 0, 0)
	fieldNode := NewNode("Field", field)
	fieldNode.Transform = EulerTransform(mgl32.Vec3(cfg.Field.Position), cfg.Field.RotationX, 0, 0)

	root := NewNode("Scene", nil).Add(
		NewNode("Controls", controls),
		NewNode("Sky", sky),
		NewNode("Suspense", suspense).Add(
			NewNode("AmbientLight", ambient),
			groundNode,
			fieldNode,
		),
	)

	return &SceneGraph{
		Root:     root,
		Camera:   camera,
		Controls: controls,
		Sky:      sky,
		Suspense: suspense,
		Ambient:  ambient,
		Ground:   ground,
		Field:    field,
		Post:     NewPostProcess(cfg.PostProcess, width, height),
		Uniforms: uniforms,
	}, nil
}

// Scene is the runtime resource behind SceneModule.
type Scene struct {
	Config   Config
	Graph    *SceneGraph
	Renderer *Renderer
	Driver   *AnimationDriver

	rng *rand.Rand
}

// SceneModule composes the scene on start, waits for its assets, animates
// and renders it each frame and releases the GPU resources on teardown. It
// expects LoggingModule, AssetServerModule and WindowModule to be installed.
type SceneModule struct {
	Config Config
	Device gpu.Device
	// Rand seeds instance placement; nil uses a clock-seeded source.
	Rand *rand.Rand
}

func (m SceneModule) Install(app *App, cmd *Commands) {
	stats := &FrameStats{}
	cmd.AddResources(
		&Lifecycle{state: StateInitializing},
		stats,
		&Scene{
			Config:   m.Config,
			Renderer: NewRenderer(m.Device, app.Logger(), stats),
			rng:      m.Rand,
		},
	)

	app.UseSystem(
		System(composeSceneSystem).
			InStage(Prelude).
			InState(OnEnter(StateInitializing)),
	)
	app.UseSystem(
		System(awaitAssetsSystem).
			InStage(PostUpdate).
			InState(OnExecute(StateAssetsLoading)),
	)
	app.UseSystem(
		System(teardownSceneSystem).
			InStage(Finale).
			InState(OnEnter(StateTornDown)),
	)

	for _, state := range []State{StateAssetsLoading, StateRendering} {
		app.UseSystem(
			System(controlsInputSystem).
				InStage(Update).
				InState(OnExecute(state)),
		)
		app.UseSystem(
			System(resizeSystem).
				InStage(PreRender).
				InState(OnExecute(state)),
		)
		app.UseSystem(
			System(renderSceneSystem).
				InStage(Render).
				InState(OnExecute(state)),
		)
	}
	app.UseSystem(
		System(dampControlsSystem).
			InStage(Update).
			InState(OnExecute(StateAssetsLoading)),
	)
	app.UseSystem(
		System(animateSystem).
			InStage(Update).
			InState(OnExecute(StateRendering)),
	)
}

func composeSceneSystem(scene *Scene, assets *AssetServer, ws *WindowState, lifecycle *Lifecycle, cmd *Commands) {
	graph, err := Compose(scene.Config, assets, ws.Width, ws.Height, scene.rng)
	if err != nil {
		cmd.Fail(fmt.Errorf("compose scene: %w", err))
		return
	}
	scene.Graph = graph
	scene.Driver = NewAnimationDriver(graph.Uniforms, scene.Config.Animation, graph.Controls)

	if err := scene.Renderer.Prepare(graph, ws.Width, ws.Height); err != nil {
		cmd.Fail(fmt.Errorf("prepare renderer: %w", err))
		return
	}
	cmd.Logger().Infof("scene composed: %d grass instances", graph.Field.InstanceCount())

	if err := lifecycle.Transition(cmd, StateAssetsLoading); err != nil {
		cmd.Fail(err)
	}
}

func awaitAssetsSystem(scene *Scene, assets *AssetServer, lifecycle *Lifecycle, cmd *Commands) {
	assets.Poll()
	ready, err := scene.Graph.Suspense.Check(assets)
	if err != nil {
		cmd.Fail(fmt.Errorf("load assets: %w", err))
		return
	}
	if !ready {
		return
	}

	if err := scene.Renderer.PrepareSuspended(scene.Graph, assets); err != nil {
		cmd.Fail(fmt.Errorf("prepare scene: %w", err))
		return
	}
	cmd.Logger().Infof("assets ready")

	if err := lifecycle.Transition(cmd, StateRendering); err != nil {
		cmd.Fail(err)
	}
}

func controlsInputSystem(scene *Scene, ws *WindowState) {
	controls := scene.Graph.Controls
	in := ws.Input
	controls.Rotate(float32(in.RotateX), float32(in.RotateY), ws.Height)
	controls.Pan(float32(in.PanX), float32(in.PanY), ws.Height)
	controls.Zoom(float32(in.Scroll))
}

func dampControlsSystem(scene *Scene) {
	scene.Driver.UpdateControls()
}

func animateSystem(scene *Scene) {
	scene.Driver.Frame()
}

func resizeSystem(scene *Scene, ws *WindowState, cmd *Commands) {
	if !ws.Resized {
		return
	}
	scene.Graph.Camera.SetViewport(ws.Width, ws.Height)
	scene.Graph.Post.Resize(ws.Width, ws.Height)
	if err := scene.Renderer.Resize(scene.Graph, ws.Width, ws.Height); err != nil {
		cmd.Fail(fmt.Errorf("resize: %w", err))
	}
}

func renderSceneSystem(scene *Scene, stats *FrameStats, cmd *Commands) {
	if err := scene.Renderer.Frame(scene.Graph); err != nil {
		cmd.Fail(fmt.Errorf("render: %w", err))
		return
	}
	if scene.Config.Debug {
		stats.report(cmd.Logger(), time.Now(), time.Second)
	}
}

func teardownSceneSystem(scene *Scene, lifecycle *Lifecycle, cmd *Commands) {
	scene.Renderer.Dispose()
	if lifecycle.State() != StateTornDown {
		// Failures and window close reach TornDown through the scheduler directly.
		if err := lifecycle.Transition(nil, StateTornDown); err != nil {
			cmd.Logger().Warnf("%v", err)
		}
	}
	cmd.Logger().Infof("scene torn down")
}
