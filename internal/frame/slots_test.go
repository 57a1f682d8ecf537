package frame

import "testing"

func TestNewSlotPool(t *testing.T) {
	factory := &fakeFactory{}
	pool, err := NewSlotPool(factory, 2)
	if err != nil {
		t.Fatalf("NewSlotPool() error = %v", err)
	}
	if pool.Len() != 2 {
		t.Errorf("Len() = %d, want 2", pool.Len())
	}
	if len(factory.semaphores) != 4 || len(factory.fences) != 2 {
		t.Errorf("created %d semaphores and %d fences, want 4 and 2", len(factory.semaphores), len(factory.fences))
	}
	for i := 0; i < pool.Len(); i++ {
		s := pool.Slot(i)
		if s.ImageAvailable == s.RenderFinished {
			t.Errorf("slot %d shares one semaphore for both roles", i)
		}
		if !s.InFlight.(*fakeFence).signaled {
			t.Errorf("slot %d fence starts unsignaled; the first wait would block forever", i)
		}
	}
}

func TestNewSlotPoolRejectsZero(t *testing.T) {
	if _, err := NewSlotPool(&fakeFactory{}, 0); err == nil {
		t.Error("NewSlotPool(0) error = nil, want error")
	}
}

func TestNewSlotPoolCleansUpOnFailure(t *testing.T) {
	// Slot 0 takes three calls; the fifth call fails inside slot 1.
	factory := &fakeFactory{failAfter: 4}
	if _, err := NewSlotPool(factory, 2); err == nil {
		t.Fatal("NewSlotPool() error = nil, want error")
	}
	for _, s := range factory.semaphores {
		if !s.destroyed {
			t.Errorf("%s leaked after failed pool creation", s.name)
		}
	}
	for _, f := range factory.fences {
		if !f.destroyed {
			t.Errorf("%s leaked after failed pool creation", f.name)
		}
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusSuccess:    "success",
		StatusSuboptimal: "suboptimal",
		StatusOutOfDate:  "out-of-date",
		Status(42):       "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestWaitForDrawableSize(t *testing.T) {
	w := &fakeWindow{sizes: [][2]int{{800, 600}}}
	width, height := WaitForDrawableSize(w)
	if width != 800 || height != 600 || w.waits != 0 {
		t.Errorf("WaitForDrawableSize() = %dx%d after %d waits, want 800x600 after 0", width, height, w.waits)
	}
}
