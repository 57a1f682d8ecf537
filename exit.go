package main

import "sync/atomic"

// exitGate hands closer's signal path back to the main goroutine. closer runs
// its cleanup on its own goroutine, but GLFW and the Vulkan objects must be
// released on the locked main thread.
type exitGate struct {
	stop     atomic.Bool
	released chan struct{}
}

func newExitGate() *exitGate {
	return &exitGate{released: make(chan struct{})}
}

// request asks the main loop to stop and blocks until teardown is done.
// It is bound with closer.Bind.
func (g *exitGate) request() {
	g.stop.Store(true)
	<-g.released
}

// stopping reports whether a stop has been requested.
func (g *exitGate) stopping() bool {
	return g.stop.Load()
}

// release unblocks request once teardown has finished. It must be called
// exactly once.
func (g *exitGate) release() {
	close(g.released)
}
