// Package window wraps the GLFW window the renderer presents to.
package window

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vulkan-go/glfw/v3.3/glfw"
)

// Window is a resizable GLFW window without a client API.
type Window struct {
	w        *glfw.Window
	onResize func(width, height int)
}

// Init initializes GLFW. It must run on the main thread.
func Init() error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "init glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("GLFW Vulkan loader not found")
	}
	return nil
}

// Terminate releases GLFW.
func Terminate() { glfw.Terminate() }

// InstanceProcAddr returns the vkGetInstanceProcAddr GLFW loaded.
func InstanceProcAddr() unsafe.Pointer { return glfw.GetVulkanGetInstanceProcAddress() }

// New creates the window. Escape closes it.
func New(width, height int, title string) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	w, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window")
	}
	win := &Window{w: w}
	w.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if win.onResize != nil {
			win.onResize(width, height)
		}
	})
	return win, nil
}

// OnResize registers fn to run whenever the framebuffer size changes.
func (w *Window) OnResize(fn func(width, height int)) { w.onResize = fn }

// FramebufferSize returns the drawable size in pixels.
func (w *Window) FramebufferSize() (int, int) { return w.w.GetFramebufferSize() }

// WaitEvents blocks until an event arrives and processes it.
func (w *Window) WaitEvents() { glfw.WaitEvents() }

// PollEvents processes pending events without blocking.
func (w *Window) PollEvents() { glfw.PollEvents() }

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool { return w.w.ShouldClose() }

// RequiredInstanceExtensions lists the instance extensions presentation needs.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.w.GetRequiredInstanceExtensions()
}

// CreateSurface creates a presentation surface for instance and returns the
// raw handle.
func (w *Window) CreateSurface(instance interface{}) (uintptr, error) {
	surface, err := w.w.CreateWindowSurface(instance, nil)
	if err != nil {
		return 0, errors.Wrap(err, "create window surface")
	}
	return surface, nil
}

// Destroy closes the window.
func (w *Window) Destroy() { w.w.Destroy() }
