// Package vkr implements the Vulkan side of the viewer: device selection,
// swapchain and the objects built on it, resource upload, command recording,
// and the queue operations the frame loop drives.
package vkr

import (
	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/vkmodel/internal/frame"
)

var (
	validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
	deviceExtensions = []string{"VK_KHR_swapchain"}
)

// Window is what the renderer needs from the windowing system.
type Window interface {
	frame.Window
	RequiredInstanceExtensions() []string
	CreateSurface(instance interface{}) (uintptr, error)
}

// check turns a non-success result into an error annotated with what failed.
func check(res vulkan.Result, what string) error {
	if res == vulkan.Success {
		return nil
	}
	return errors.Wrap(resultError(res), what)
}

// checkf is check with a formatted message.
func checkf(res vulkan.Result, format string, args ...interface{}) error {
	if res == vulkan.Success {
		return nil
	}
	return errors.Wrapf(resultError(res), format, args...)
}

// resultError is vulkan.Error for codes it does not treat as failures.
func resultError(res vulkan.Result) error {
	if err := vulkan.Error(res); err != nil {
		return err
	}
	return errors.Errorf("unexpected result %d", res)
}
