package main

import (
	"testing"
	"time"
)

func TestExitGateBlocksUntilReleased(t *testing.T) {
	g := newExitGate()
	if g.stopping() {
		t.Fatal("stopping() = true before any request")
	}

	done := make(chan struct{})
	go func() {
		g.request()
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for !g.stopping() {
		if time.Now().After(deadline) {
			t.Fatal("request() never set the stop flag")
		}
		time.Sleep(time.Millisecond)
	}
	select {
	case <-done:
		t.Fatal("request() returned before release()")
	case <-time.After(20 * time.Millisecond):
	}

	g.release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("request() still blocked after release()")
	}
}

func TestExitGateReleasedFirst(t *testing.T) {
	g := newExitGate()
	g.release()

	done := make(chan struct{})
	go func() {
		g.request()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("request() blocked although teardown already finished")
	}
	if !g.stopping() {
		t.Error("stopping() = false after request()")
	}
}
