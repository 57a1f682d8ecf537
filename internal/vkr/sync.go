package vkr

import (
	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/vkmodel/internal/frame"
)

type semaphore struct {
	device vulkan.Device
	handle vulkan.Semaphore
}

func (s *semaphore) Destroy() {
	if s.handle != vulkan.Semaphore(vulkan.NullHandle) {
		vulkan.DestroySemaphore(s.device, s.handle, nil)
		s.handle = vulkan.Semaphore(vulkan.NullHandle)
	}
}

type fence struct {
	device vulkan.Device
	handle vulkan.Fence
}

func (f *fence) Wait() error {
	return check(vulkan.WaitForFences(f.device, 1, []vulkan.Fence{f.handle}, vulkan.True, vulkan.MaxUint64), "wait for fence")
}

func (f *fence) Reset() error {
	return check(vulkan.ResetFences(f.device, 1, []vulkan.Fence{f.handle}), "reset fence")
}

func (f *fence) Destroy() {
	if f.handle != vulkan.Fence(vulkan.NullHandle) {
		vulkan.DestroyFence(f.device, f.handle, nil)
		f.handle = vulkan.Fence(vulkan.NullHandle)
	}
}

// NewSemaphore creates a binary semaphore.
func (r *Renderer) NewSemaphore() (frame.Semaphore, error) {
	info := vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}
	s := &semaphore{device: r.dev.device}
	if err := check(vulkan.CreateSemaphore(r.dev.device, &info, nil, &s.handle), "create semaphore"); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFence creates a fence, optionally already signaled.
func (r *Renderer) NewFence(signaled bool) (frame.Fence, error) {
	info := vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit)
	}
	f := &fence{device: r.dev.device}
	if err := check(vulkan.CreateFence(r.dev.device, &info, nil, &f.handle), "create fence"); err != nil {
		return nil, err
	}
	return f, nil
}

func semaphoreHandle(s frame.Semaphore) (vulkan.Semaphore, error) {
	vs, ok := s.(*semaphore)
	if !ok {
		return vulkan.Semaphore(vulkan.NullHandle), errors.Errorf("semaphore of type %T was not created by this renderer", s)
	}
	return vs.handle, nil
}

func fenceHandle(f frame.Fence) (vulkan.Fence, error) {
	vf, ok := f.(*fence)
	if !ok {
		return vulkan.Fence(vulkan.NullHandle), errors.Errorf("fence of type %T was not created by this renderer", f)
	}
	return vf.handle, nil
}
