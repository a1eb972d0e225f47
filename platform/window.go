// Package platform owns the GLFW window and turns its callbacks into the
// per-frame input snapshot consumed by the scene.
package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/meadow"
)

var _ meadow.HostWindow = (*Window)(nil)

type Window struct {
	win *glfw.Window

	width, height int
	resized       bool

	lastX, lastY float64
	rotating     bool
	panning      bool
	pending      meadow.PointerInput
}

// NewWindow initialises GLFW and opens a resizable window without a client API,
// so a WebGPU surface can be attached. It must be called from the main thread.
func NewWindow(width, height int, title string) (*Window, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Important: tell GLFW we don't want OpenGL
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	w := &Window{win: win}
	w.width, w.height = win.GetFramebufferSize()

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width, w.height = width, height
		w.resized = true
	})
	win.SetMouseButtonCallback(func(gw *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		pressed := action == glfw.Press
		switch button {
		case glfw.MouseButtonLeft:
			w.rotating = pressed
		case glfw.MouseButtonRight:
			w.panning = pressed
		}
		if pressed {
			w.lastX, w.lastY = gw.GetCursorPos()
		}
	})
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		dx, dy := x-w.lastX, y-w.lastY
		w.lastX, w.lastY = x, y
		if w.rotating {
			w.pending.RotateX += dx
			w.pending.RotateY += dy
		}
		if w.panning {
			w.pending.PanX += dx
			w.pending.PanY += dy
		}
	})
	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.pending.Scroll += yoff
	})
	win.SetKeyCallback(func(gw *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.SetShouldClose(true)
		}
	})

	return w, nil
}

// GLFW exposes the underlying window for surface creation.
func (w *Window) GLFW() *glfw.Window {
	return w.win
}

func (w *Window) Size() (int, int) {
	return w.width, w.height
}

func (w *Window) ShouldClose() bool {
	return w.win.ShouldClose()
}

// PollEvents pumps the GLFW queue and returns the input gathered since the
// last call, plus whether the framebuffer was resized in between.
func (w *Window) PollEvents() (meadow.PointerInput, bool) {
	glfw.PollEvents()

	in := w.pending
	w.pending = meadow.PointerInput{}
	resized := w.resized
	w.resized = false
	return in, resized
}

func (w *Window) Destroy() {
	w.win.Destroy()
	glfw.Terminate()
}
