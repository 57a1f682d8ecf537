// Package frame drives the per-frame acquire/submit/present protocol and the
// swapchain recreation procedure.
//
// The package never talks to a graphics API directly. A Target supplies the
// queue operations and owns the swapchain-dependent objects, a SyncFactory
// supplies fences and semaphores, and a Window reports the drawable size.
// Frame slots (0..N) and swapchain image indices (0..M) are separate index
// spaces: a slot picks the synchronization primitives, the image index picks
// the command buffer, framebuffer and uniform buffer.
package frame

// DefaultFramesInFlight is the number of frame slots used when none is given.
const DefaultFramesInFlight = 2

// Status is the non-fatal outcome of an acquire or present call.
type Status int

const (
	// StatusSuccess means the operation completed and the swapchain is ideal.
	StatusSuccess Status = iota
	// StatusSuboptimal means the image can still be used but the swapchain no
	// longer matches the surface exactly.
	StatusSuboptimal
	// StatusOutOfDate means the swapchain can no longer present to the
	// surface and must be rebuilt before use.
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	default:
		return "unknown"
	}
}

// Semaphore orders queue operations on the GPU. The CPU never waits on it.
type Semaphore interface {
	Destroy()
}

// Fence is signaled by the GPU and observed by the CPU.
type Fence interface {
	// Wait blocks until the fence is signaled. There is no timeout.
	Wait() error
	// Reset returns the fence to the unsignaled state.
	Reset() error
	Destroy()
}

// SyncFactory creates the primitives a frame slot owns.
type SyncFactory interface {
	NewSemaphore() (Semaphore, error)
	NewFence(signaled bool) (Fence, error)
}

// Window is the windowing collaborator.
type Window interface {
	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (width, height int)
	// WaitEvents blocks until at least one window event has been processed.
	WaitEvents()
}

// Target owns the device queues and every object that depends on the
// swapchain extent or format.
type Target interface {
	// Acquire asks for the next presentable image. signal is signaled once the
	// image may be drawn to. Unexpected result codes are returned as errors.
	Acquire(signal Semaphore) (imageIndex uint32, status Status, err error)
	// UpdateUniforms rewrites the uniform buffer of the given image.
	UpdateUniforms(imageIndex uint32) error
	// Submit enqueues the prerecorded command buffer of imageIndex on the
	// graphics queue. It waits on wait at the colour-attachment-output stage,
	// signals signal, and signals fence on completion.
	Submit(imageIndex uint32, wait, signal Semaphore, fence Fence) error
	// Present queues imageIndex for presentation after wait is signaled.
	Present(imageIndex uint32, wait Semaphore) (Status, error)
	// WaitIdle blocks until the device has finished all queued work.
	WaitIdle() error
	// DestroySwapchain releases every swapchain-dependent object in
	// dependency order.
	DestroySwapchain()
	// BuildSwapchain creates the swapchain and everything that depends on it
	// for a drawable of the given size.
	BuildSwapchain(width, height int) error
	// ImageCount returns the number of images in the current swapchain.
	ImageCount() int
}
