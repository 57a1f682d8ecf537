package frame

import (
	"github.com/pkg/errors"

	"github.com/hellhand/vkmodel/internal/logging"
)

// WaitForDrawableSize blocks on window events until both framebuffer
// dimensions are non-zero, e.g. while the window is minimized.
func WaitForDrawableSize(w Window) (width, height int) {
	width, height = w.FramebufferSize()
	for width <= 0 || height <= 0 {
		w.WaitEvents()
		width, height = w.FramebufferSize()
	}
	return width, height
}

// recreate tears down and rebuilds every swapchain-dependent object. The
// device must be idle before anything is destroyed; the frame slots are left
// alone because no queued work can reference them afterwards.
func (l *Loop) recreate() error {
	width, height := WaitForDrawableSize(l.window)

	if err := l.target.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait idle before swapchain recreation")
	}

	l.target.DestroySwapchain()
	if err := l.target.BuildSwapchain(width, height); err != nil {
		return errors.Wrap(err, "rebuild swapchain")
	}
	l.images = make([]Fence, l.target.ImageCount())

	l.resized = false
	l.recreations++
	logging.Logger().Debug("swapchain recreated",
		"width", width,
		"height", height,
		"frame", l.current,
		"count", l.recreations)
	return nil
}
