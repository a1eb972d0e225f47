package meadow

// PointerInput is the pointer movement gathered between two frames, in pixels
// and scroll steps.
type PointerInput struct {
	RotateX, RotateY float64
	PanX, PanY       float64
	Scroll           float64
}

// HostWindow is the native window the scene renders into. The platform
// package provides the GLFW implementation.
type HostWindow interface {
	Size() (int, int)
	ShouldClose() bool
	// PollEvents pumps the event queue and returns the input since the last
	// call, plus whether the framebuffer size changed.
	PollEvents() (PointerInput, bool)
}

// WindowState is the per-frame view of the host window shared with other systems.
type WindowState struct {
	Host    HostWindow
	Width   int
	Height  int
	Resized bool
	Input   PointerInput
}

// WindowModule polls the host window at the start of every frame and tears
// the scene down once the window is asked to close.
type WindowModule struct {
	Host HostWindow
}

func (m WindowModule) Install(app *App, cmd *Commands) {
	w, h := m.Host.Size()
	cmd.AddResources(&WindowState{
		Host:   m.Host,
		Width:  w,
		Height: h,
	})
	app.UseSystem(
		System(windowSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

func windowSystem(ws *WindowState, cmd *Commands) {
	ws.Input, ws.Resized = ws.Host.PollEvents()
	if ws.Resized {
		ws.Width, ws.Height = ws.Host.Size()
		cmd.Logger().Debugf("viewport resized to %dx%d", ws.Width, ws.Height)
	}
	if ws.Host.ShouldClose() && cmd.State() != StateTornDown {
		cmd.Logger().Infof("window closed")
		cmd.ChangeState(StateTornDown)
	}
}
