package frame

import (
	"fmt"

	"github.com/pkg/errors"
)

// fakeSemaphore tracks whether a GPU-side signal is pending.
type fakeSemaphore struct {
	name      string
	signaled  bool
	destroyed bool
}

func (s *fakeSemaphore) Destroy() { s.destroyed = true }

// fakeFence models a fence whose GPU work completes as soon as the CPU waits.
// Each submission bumps gen; done is the last gen observed complete.
type fakeFence struct {
	name      string
	signaled  bool
	pending   bool
	waits     int
	gen       int
	done      int
	destroyed bool
}

func (f *fakeFence) Wait() error {
	f.waits++
	if f.pending {
		f.pending = false
		f.signaled = true
		f.done = f.gen
	}
	if !f.signaled {
		return errors.Errorf("%s: wait would never return", f.name)
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.signaled = false
	return nil
}

func (f *fakeFence) Destroy() { f.destroyed = true }

type fakeFactory struct {
	semaphores []*fakeSemaphore
	fences     []*fakeFence
	failAfter  int // fail the call after this many successes; 0 disables
	calls      int
}

func (f *fakeFactory) fail() bool {
	f.calls++
	return f.failAfter > 0 && f.calls > f.failAfter
}

func (f *fakeFactory) NewSemaphore() (Semaphore, error) {
	if f.fail() {
		return nil, errors.New("out of device memory")
	}
	s := &fakeSemaphore{name: fmt.Sprintf("sem%d", len(f.semaphores))}
	f.semaphores = append(f.semaphores, s)
	return s, nil
}

func (f *fakeFactory) NewFence(signaled bool) (Fence, error) {
	if f.fail() {
		return nil, errors.New("out of device memory")
	}
	fe := &fakeFence{name: fmt.Sprintf("fence%d", len(f.fences)), signaled: signaled}
	f.fences = append(f.fences, fe)
	return fe, nil
}

type fakeWindow struct {
	sizes [][2]int
	waits int
}

func (w *fakeWindow) FramebufferSize() (int, int) {
	s := w.sizes[0]
	return s[0], s[1]
}

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if len(w.sizes) > 1 {
		w.sizes = w.sizes[1:]
	}
}

// imageUse is the fence and generation of an image's last submission.
type imageUse struct {
	fence *fakeFence
	gen   int
}

// fakeTarget is a swapchain of `images` presentable images handed out round
// robin, or in the order given by `order`. Scripted statuses are consumed one
// per call; an empty script means success.
type fakeTarget struct {
	images   int
	order    []uint32
	next     uint32
	acquired int
	inUse    map[uint32]imageUse
	built    bool
	width    int
	height   int
	builds   [][2]int
	events   []string
	submits  map[uint32]int

	acquireScript []Status
	presentScript []Status

	acquireErr error
	submitErr  error
	presentErr error
	buildErr   error
	idleErr    error
}

func newFakeTarget(images, width, height int) *fakeTarget {
	return &fakeTarget{
		images:  images,
		built:   true,
		width:   width,
		height:  height,
		submits: make(map[uint32]int),
		inUse:   make(map[uint32]imageUse),
	}
}

// busy reports an error if the last submission of imageIndex has not been
// observed complete on the CPU.
func (t *fakeTarget) busy(imageIndex uint32, what string) error {
	use, ok := t.inUse[imageIndex]
	if ok && use.fence.done < use.gen {
		return errors.Errorf("%s of image %d while %s is still pending", what, imageIndex, use.fence.name)
	}
	return nil
}

func (t *fakeTarget) log(format string, args ...any) {
	t.events = append(t.events, fmt.Sprintf(format, args...))
}

func (t *fakeTarget) Acquire(signal Semaphore) (uint32, Status, error) {
	t.log("acquire")
	if t.acquireErr != nil {
		return 0, StatusSuccess, t.acquireErr
	}
	if !t.built {
		return 0, StatusSuccess, errors.New("acquire on destroyed swapchain")
	}
	status := StatusSuccess
	if len(t.acquireScript) > 0 {
		status, t.acquireScript = t.acquireScript[0], t.acquireScript[1:]
	}
	if status == StatusOutOfDate {
		return 0, status, nil
	}
	sem := signal.(*fakeSemaphore)
	if sem.signaled {
		return 0, status, errors.Errorf("%s signaled twice without a wait", sem.name)
	}
	sem.signaled = true
	idx := t.next
	if len(t.order) > 0 {
		idx = t.order[t.acquired%len(t.order)]
		t.acquired++
	}
	t.next = (idx + 1) % uint32(t.images)
	return idx, status, nil
}

func (t *fakeTarget) UpdateUniforms(imageIndex uint32) error {
	t.log("uniforms %d", imageIndex)
	if int(imageIndex) >= t.images {
		return errors.Errorf("image %d out of range", imageIndex)
	}
	return t.busy(imageIndex, "uniform update")
}

func (t *fakeTarget) Submit(imageIndex uint32, wait, signal Semaphore, fence Fence) error {
	t.log("submit %d", imageIndex)
	if t.submitErr != nil {
		return t.submitErr
	}
	if err := t.busy(imageIndex, "resubmit"); err != nil {
		return err
	}
	w := wait.(*fakeSemaphore)
	if !w.signaled {
		return errors.Errorf("submit waits on unsignaled %s", w.name)
	}
	w.signaled = false
	f := fence.(*fakeFence)
	if f.signaled || f.pending {
		return errors.Errorf("submit with %s still in use", f.name)
	}
	f.pending = true
	f.gen++
	t.inUse[imageIndex] = imageUse{fence: f, gen: f.gen}
	signal.(*fakeSemaphore).signaled = true
	t.submits[imageIndex]++
	return nil
}

func (t *fakeTarget) Present(imageIndex uint32, wait Semaphore) (Status, error) {
	t.log("present %d", imageIndex)
	if t.presentErr != nil {
		return StatusSuccess, t.presentErr
	}
	w := wait.(*fakeSemaphore)
	if !w.signaled {
		return StatusSuccess, errors.Errorf("present waits on unsignaled %s", w.name)
	}
	w.signaled = false
	status := StatusSuccess
	if len(t.presentScript) > 0 {
		status, t.presentScript = t.presentScript[0], t.presentScript[1:]
	}
	return status, nil
}

func (t *fakeTarget) WaitIdle() error {
	t.log("idle")
	return t.idleErr
}

func (t *fakeTarget) DestroySwapchain() {
	t.log("destroy")
	t.built = false
}

func (t *fakeTarget) BuildSwapchain(width, height int) error {
	t.log("build %dx%d", width, height)
	if t.buildErr != nil {
		return t.buildErr
	}
	if width <= 0 || height <= 0 {
		return errors.Errorf("degenerate extent %dx%d", width, height)
	}
	t.built = true
	t.width, t.height = width, height
	t.next = 0
	t.acquired = 0
	t.inUse = make(map[uint32]imageUse)
	t.builds = append(t.builds, [2]int{width, height})
	return nil
}

func (t *fakeTarget) ImageCount() int {
	if !t.built {
		return 0
	}
	return t.images
}

func (t *fakeTarget) count(prefix string) int {
	n := 0
	for _, e := range t.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
