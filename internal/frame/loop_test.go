package frame

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func newTestLoop(t *testing.T, target *fakeTarget, window *fakeWindow, n int) (*Loop, *fakeFactory) {
	t.Helper()
	factory := &fakeFactory{}
	loop, err := NewLoop(target, window, factory, n)
	if err != nil {
		t.Fatalf("NewLoop() error = %v", err)
	}
	return loop, factory
}

func steadyWindow() *fakeWindow {
	return &fakeWindow{sizes: [][2]int{{800, 600}}}
}

func TestDrawFrameSteadyState(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	loop, factory := newTestLoop(t, target, steadyWindow(), 2)

	for i := 0; i < 10; i++ {
		if got, want := loop.CurrentFrame(), i%2; got != want {
			t.Fatalf("frame %d: CurrentFrame() = %d, want %d", i, got, want)
		}
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("frame %d: DrawFrame() error = %v", i, err)
		}
	}

	want := map[uint32]int{0: 4, 1: 3, 2: 3}
	if !reflect.DeepEqual(target.submits, want) {
		t.Errorf("submits per image = %v, want %v", target.submits, want)
	}
	if loop.CurrentFrame() != 0 {
		t.Errorf("CurrentFrame() = %d after 10 frames, want 0", loop.CurrentFrame())
	}
	if loop.Frames() != 10 {
		t.Errorf("Frames() = %d, want 10", loop.Frames())
	}
	if loop.Recreations() != 0 {
		t.Errorf("Recreations() = %d, want 0", loop.Recreations())
	}
	// Each slot waits on its own fence once per use; images shared across
	// slots add waits on top.
	for _, f := range factory.fences {
		if f.waits < 5 {
			t.Errorf("%s waited %d times, want at least 5", f.name, f.waits)
		}
	}
}

func TestDrawFrameMoreSlotsThanImages(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	loop, factory := newTestLoop(t, target, steadyWindow(), 4)

	for i := 0; i < 8; i++ {
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("frame %d: DrawFrame() error = %v", i, err)
		}
	}
	want := map[uint32]int{0: 3, 1: 3, 2: 2}
	if !reflect.DeepEqual(target.submits, want) {
		t.Errorf("submits per image = %v, want %v", target.submits, want)
	}
	// Frame 3 reuses image 0, last submitted under slot 0: it must wait on
	// fence0 before slot 0 comes around again.
	if got := factory.fences[0].waits; got < 3 {
		t.Errorf("fence0 waited %d times, want at least 3", got)
	}
}

func TestDrawFrameOutOfOrderImages(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	target.order = []uint32{0, 1, 2, 2, 1, 0}
	loop, _ := newTestLoop(t, target, steadyWindow(), 2)

	for i := 0; i < 12; i++ {
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("frame %d: DrawFrame() error = %v", i, err)
		}
	}
}

func TestImageFencesClearedOnRecreation(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	loop, factory := newTestLoop(t, target, steadyWindow(), 4)

	for i := 0; i < 3; i++ {
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("frame %d: DrawFrame() error = %v", i, err)
		}
	}
	loop.RequestResize()
	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	// Slot 3 drew image 0 of the old swapchain. Frame 4 draws image 0 of the
	// new one on slot 0 and must not wait on fence3 again.
	waits := factory.fences[3].waits
	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if got := factory.fences[3].waits; got != waits {
		t.Errorf("fence3 waited %d more times after recreation, want 0", got-waits)
	}
}

func TestDrawFrameRejectsUnknownImage(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	target.order = []uint32{5}
	loop, _ := newTestLoop(t, target, steadyWindow(), 2)

	if err := loop.DrawFrame(); err == nil {
		t.Fatal("DrawFrame() error = nil for image index beyond the swapchain")
	}
}

func TestDrawFrameProtocolOrder(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	loop, _ := newTestLoop(t, target, steadyWindow(), 2)

	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	want := []string{"acquire", "uniforms 0", "submit 0", "present 0"}
	if !reflect.DeepEqual(target.events, want) {
		t.Errorf("events = %v, want %v", target.events, want)
	}
}

func TestDrawFrameAcquireOutOfDate(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	target.acquireScript = []Status{StatusOutOfDate}
	loop, factory := newTestLoop(t, target, steadyWindow(), 2)

	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}

	if n := target.count("submit"); n != 0 {
		t.Errorf("submitted %d times after out-of-date acquire, want 0", n)
	}
	if n := target.count("present"); n != 0 {
		t.Errorf("presented %d times after out-of-date acquire, want 0", n)
	}
	if !factory.fences[0].signaled {
		t.Error("slot 0 fence was reset although nothing was submitted")
	}
	if loop.Recreations() != 1 {
		t.Errorf("Recreations() = %d, want 1", loop.Recreations())
	}
	if loop.CurrentFrame() != 1 {
		t.Errorf("CurrentFrame() = %d, want 1", loop.CurrentFrame())
	}

	// Both slots must still be usable afterwards.
	for i := 0; i < 4; i++ {
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("DrawFrame() after recreation error = %v", err)
		}
	}
}

func TestDrawFramePresentSuboptimal(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	target.presentScript = []Status{StatusSuccess, StatusSuccess, StatusSuboptimal}
	loop, _ := newTestLoop(t, target, steadyWindow(), 2)

	for i := 0; i < 4; i++ {
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("frame %d: DrawFrame() error = %v", i, err)
		}
	}

	// Frame 2 is presented, then rebuilt before frame 3 acquires.
	want := []string{
		"present 2",
		"idle", "destroy", "build 800x600",
		"acquire",
	}
	got := target.events[11:16]
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events around suboptimal present = %v, want %v", got, want)
	}
	if loop.Recreations() != 1 {
		t.Errorf("Recreations() = %d, want 1", loop.Recreations())
	}
}

func TestDrawFrameAcquireSuboptimalRebuildsAfterPresent(t *testing.T) {
	target := newFakeTarget(2, 640, 480)
	target.acquireScript = []Status{StatusSuboptimal}
	loop, _ := newTestLoop(t, target, &fakeWindow{sizes: [][2]int{{640, 480}}}, 2)

	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	want := []string{"acquire", "uniforms 0", "submit 0", "present 0", "idle", "destroy", "build 640x480"}
	if !reflect.DeepEqual(target.events, want) {
		t.Errorf("events = %v, want %v", target.events, want)
	}
}

func TestRequestResize(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	window := &fakeWindow{sizes: [][2]int{{1024, 768}}}
	loop, _ := newTestLoop(t, target, window, 2)

	loop.RequestResize()
	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if loop.Recreations() != 1 {
		t.Fatalf("Recreations() = %d, want 1", loop.Recreations())
	}
	if target.width != 1024 || target.height != 768 {
		t.Errorf("rebuilt extent = %dx%d, want 1024x768", target.width, target.height)
	}

	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if loop.Recreations() != 1 {
		t.Errorf("resize flag not cleared: Recreations() = %d, want 1", loop.Recreations())
	}
}

func TestRecreationWaitsForDrawableSize(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	window := &fakeWindow{sizes: [][2]int{{0, 0}, {0, 600}, {800, 0}, {400, 300}}}
	target.acquireScript = []Status{StatusOutOfDate}
	loop, _ := newTestLoop(t, target, window, 2)

	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if window.waits != 3 {
		t.Errorf("WaitEvents called %d times, want 3", window.waits)
	}
	want := [][2]int{{400, 300}}
	if !reflect.DeepEqual(target.builds, want) {
		t.Errorf("builds = %v, want %v", target.builds, want)
	}
}

func TestRecreationIsIdempotent(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	target.presentScript = []Status{StatusSuboptimal, StatusSuboptimal}
	loop, _ := newTestLoop(t, target, steadyWindow(), 2)

	for i := 0; i < 2; i++ {
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("DrawFrame() error = %v", err)
		}
	}
	want := [][2]int{{800, 600}, {800, 600}}
	if !reflect.DeepEqual(target.builds, want) {
		t.Errorf("builds = %v, want %v", target.builds, want)
	}
}

func TestRecreationOrder(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	target.acquireScript = []Status{StatusOutOfDate}
	loop, _ := newTestLoop(t, target, steadyWindow(), 2)

	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	want := []string{"acquire", "idle", "destroy", "build 800x600"}
	if !reflect.DeepEqual(target.events, want) {
		t.Errorf("events = %v, want %v", target.events, want)
	}
}

func TestRoundRobinIncludesRecreationPaths(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	target.acquireScript = []Status{StatusSuccess, StatusOutOfDate, StatusSuboptimal, StatusSuccess, StatusOutOfDate}
	target.presentScript = []Status{StatusOutOfDate}
	loop, _ := newTestLoop(t, target, steadyWindow(), 3)

	for i := 0; i < 7; i++ {
		if got, want := loop.CurrentFrame(), i%3; got != want {
			t.Fatalf("call %d: CurrentFrame() = %d, want %d", i, got, want)
		}
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("call %d: DrawFrame() error = %v", i, err)
		}
	}
}

func TestDrawFrameFatalErrors(t *testing.T) {
	boom := errors.New("device lost")
	tests := []struct {
		name  string
		setup func(*fakeTarget)
		want  string
	}{
		{"acquire", func(t *fakeTarget) { t.acquireErr = boom }, "acquire next image"},
		{"submit", func(t *fakeTarget) { t.submitErr = boom }, "submit draw command buffer"},
		{"present", func(t *fakeTarget) { t.presentErr = boom }, "present image"},
		{"rebuild", func(t *fakeTarget) {
			t.acquireScript = []Status{StatusOutOfDate}
			t.buildErr = boom
		}, "rebuild swapchain"},
		{"idle", func(t *fakeTarget) {
			t.presentScript = []Status{StatusOutOfDate}
			t.idleErr = boom
		}, "wait idle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := newFakeTarget(3, 800, 600)
			tt.setup(target)
			loop, _ := newTestLoop(t, target, steadyWindow(), 2)

			err := loop.DrawFrame()
			if err == nil {
				t.Fatal("DrawFrame() error = nil, want fatal error")
			}
			if errors.Cause(err) != boom {
				t.Errorf("errors.Cause(err) = %v, want %v", errors.Cause(err), boom)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestClose(t *testing.T) {
	target := newFakeTarget(3, 800, 600)
	loop, factory := newTestLoop(t, target, steadyWindow(), 2)

	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if err := loop.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if last := target.events[len(target.events)-1]; last != "idle" {
		t.Errorf("last event = %q, want idle", last)
	}
	for _, s := range factory.semaphores {
		if !s.destroyed {
			t.Errorf("%s not destroyed", s.name)
		}
	}
	for _, f := range factory.fences {
		if !f.destroyed {
			t.Errorf("%s not destroyed", f.name)
		}
	}
}
