package frame

import "github.com/pkg/errors"

// Slot is one in-flight frame's set of synchronization primitives.
type Slot struct {
	ImageAvailable Semaphore
	RenderFinished Semaphore
	InFlight       Fence
}

func (s *Slot) destroy() {
	if s.ImageAvailable != nil {
		s.ImageAvailable.Destroy()
		s.ImageAvailable = nil
	}
	if s.RenderFinished != nil {
		s.RenderFinished.Destroy()
		s.RenderFinished = nil
	}
	if s.InFlight != nil {
		s.InFlight.Destroy()
		s.InFlight = nil
	}
}

// SlotPool holds the N frame slots.
type SlotPool struct {
	slots []Slot
}

// NewSlotPool creates n slots. Fences start signaled so the first wait on
// each slot returns immediately. On failure every primitive created so far is
// destroyed.
func NewSlotPool(factory SyncFactory, n int) (*SlotPool, error) {
	if n <= 0 {
		return nil, errors.Errorf("frames in flight must be positive, got %d", n)
	}
	p := &SlotPool{slots: make([]Slot, n)}
	for i := range p.slots {
		if err := p.fill(factory, i); err != nil {
			p.Destroy()
			return nil, err
		}
	}
	return p, nil
}

func (p *SlotPool) fill(factory SyncFactory, i int) error {
	var err error
	s := &p.slots[i]
	if s.ImageAvailable, err = factory.NewSemaphore(); err != nil {
		return errors.Wrapf(err, "create image-available semaphore %d", i)
	}
	if s.RenderFinished, err = factory.NewSemaphore(); err != nil {
		return errors.Wrapf(err, "create render-finished semaphore %d", i)
	}
	if s.InFlight, err = factory.NewFence(true); err != nil {
		return errors.Wrapf(err, "create in-flight fence %d", i)
	}
	return nil
}

// Len returns the number of slots.
func (p *SlotPool) Len() int { return len(p.slots) }

// Slot returns slot i.
func (p *SlotPool) Slot(i int) *Slot { return &p.slots[i] }

// Destroy releases every primitive. The caller must make sure the device is
// idle first.
func (p *SlotPool) Destroy() {
	for i := range p.slots {
		p.slots[i].destroy()
	}
}
