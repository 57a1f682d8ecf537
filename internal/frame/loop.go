package frame

import "github.com/pkg/errors"

// Loop runs the acquire/submit/present protocol over a fixed set of frame
// slots. It is not safe for concurrent use; everything runs on the thread
// that owns the window.
type Loop struct {
	target Target
	window Window
	slots  *SlotPool
	// images holds, per swapchain image, the fence of the slot that last
	// submitted it. nil means the image has not been submitted since the
	// last build.
	images []Fence

	current     int
	resized     bool
	frames      uint64
	recreations uint64
}

// NewLoop creates the frame slots and returns a loop ready to draw. The
// target's swapchain must already be built.
func NewLoop(target Target, window Window, factory SyncFactory, framesInFlight int) (*Loop, error) {
	slots, err := NewSlotPool(factory, framesInFlight)
	if err != nil {
		return nil, err
	}
	return &Loop{
		target: target,
		window: window,
		slots:  slots,
		images: make([]Fence, target.ImageCount()),
	}, nil
}

// RequestResize marks the swapchain stale. It is consumed after the next
// present.
func (l *Loop) RequestResize() {
	l.resized = true
}

// CurrentFrame returns the slot the next DrawFrame will use.
func (l *Loop) CurrentFrame() int { return l.current }

// FramesInFlight returns the number of slots.
func (l *Loop) FramesInFlight() int { return l.slots.Len() }

// Frames returns how many DrawFrame calls have completed without error.
func (l *Loop) Frames() uint64 { return l.frames }

// Recreations returns how many times the swapchain has been rebuilt.
func (l *Loop) Recreations() uint64 { return l.recreations }

// DrawFrame renders and presents one frame. Out-of-date and suboptimal
// swapchains are rebuilt here and never reported; any other failure is
// returned and should be treated as fatal.
func (l *Loop) DrawFrame() error {
	slot := l.slots.Slot(l.current)

	if err := slot.InFlight.Wait(); err != nil {
		return errors.Wrapf(err, "wait for frame %d", l.current)
	}

	imageIndex, acquired, err := l.target.Acquire(slot.ImageAvailable)
	if err != nil {
		return errors.Wrap(err, "acquire next image")
	}
	if acquired == StatusOutOfDate {
		// The fence stays signaled: nothing was submitted for this slot.
		if err := l.recreate(); err != nil {
			return err
		}
		l.advance()
		return nil
	}

	if int(imageIndex) >= len(l.images) {
		return errors.Errorf("acquired image %d of %d", imageIndex, len(l.images))
	}
	// The image's command buffer and uniform buffer may still be in use by a
	// submission from another slot.
	if prev := l.images[imageIndex]; prev != nil {
		if err := prev.Wait(); err != nil {
			return errors.Wrapf(err, "wait for image %d", imageIndex)
		}
	}
	l.images[imageIndex] = slot.InFlight

	if err := l.target.UpdateUniforms(imageIndex); err != nil {
		return errors.Wrapf(err, "update uniforms for image %d", imageIndex)
	}

	if err := slot.InFlight.Reset(); err != nil {
		return errors.Wrapf(err, "reset fence %d", l.current)
	}

	if err := l.target.Submit(imageIndex, slot.ImageAvailable, slot.RenderFinished, slot.InFlight); err != nil {
		return errors.Wrap(err, "submit draw command buffer")
	}

	presented, err := l.target.Present(imageIndex, slot.RenderFinished)
	if err != nil {
		return errors.Wrap(err, "present image")
	}
	if presented != StatusSuccess || acquired == StatusSuboptimal || l.resized {
		if err := l.recreate(); err != nil {
			return err
		}
	}

	l.advance()
	return nil
}

func (l *Loop) advance() {
	l.current = (l.current + 1) % l.slots.Len()
	l.frames++
}

// Close waits for the device to go idle and destroys the frame slots.
func (l *Loop) Close() error {
	err := l.target.WaitIdle()
	l.slots.Destroy()
	return errors.Wrap(err, "wait idle before closing frame loop")
}
