package vkr

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/vkmodel/internal/transform"
)

// swapchain is replaced wholesale on every rebuild.
type swapchain struct {
	handle      vulkan.Swapchain
	images      []vulkan.Image
	views       []vulkan.ImageView
	uniforms    []*Buffer
	format      vulkan.Format
	extent      vulkan.Extent2D
	presentMode vulkan.PresentMode
}

func chooseSurfaceFormat(available []vulkan.SurfaceFormat) vulkan.SurfaceFormat {
	preferred := vulkan.SurfaceFormat{
		Format:     vulkan.FormatB8g8r8a8Unorm,
		ColorSpace: vulkan.ColorSpaceSrgbNonlinear,
	}
	if len(available) == 1 && available[0].Format == vulkan.FormatUndefined {
		return preferred
	}
	for _, f := range available {
		if f.Format == preferred.Format && f.ColorSpace == preferred.ColorSpace {
			return f
		}
	}
	return available[0]
}

func choosePresentMode(available []vulkan.PresentMode) vulkan.PresentMode {
	best := vulkan.PresentModeFifo
	for _, m := range available {
		switch m {
		case vulkan.PresentModeMailbox:
			return m
		case vulkan.PresentModeImmediate:
			best = m
		}
	}
	return best
}

func chooseExtent(caps vulkan.SurfaceCapabilities, width, height int) vulkan.Extent2D {
	if caps.CurrentExtent.Width != undefinedExtent {
		return caps.CurrentExtent
	}
	return vulkan.Extent2D{
		Width:  clamp(uint32(width), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(uint32(height), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func chooseImageCount(caps vulkan.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func (d *Device) createSwapchain(width, height int) (*swapchain, error) {
	support := d.querySwapchainSupport(d.gpu)
	if len(support.formats) == 0 || len(support.presentModes) == 0 {
		return nil, errors.New("surface reports no formats or present modes")
	}
	surfaceFormat := chooseSurfaceFormat(support.formats)
	sc := &swapchain{
		format:      surfaceFormat.Format,
		presentMode: choosePresentMode(support.presentModes),
		extent:      chooseExtent(support.capabilities, width, height),
	}

	createInfo := vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    chooseImageCount(support.capabilities),
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      sc.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		PreTransform:     support.capabilities.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      sc.presentMode,
		Clipped:          vulkan.True,
		OldSwapchain:     vulkan.Swapchain(vulkan.NullHandle),
	}
	if d.queues.graphicsFamily != d.queues.presentFamily {
		indices := []uint32{d.queues.graphicsFamily, d.queues.presentFamily}
		createInfo.ImageSharingMode = vulkan.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = uint32(len(indices))
		createInfo.PQueueFamilyIndices = indices
	} else {
		createInfo.ImageSharingMode = vulkan.SharingModeExclusive
	}

	if err := check(vulkan.CreateSwapchain(d.device, &createInfo, nil, &sc.handle), "create swapchain"); err != nil {
		return nil, err
	}

	var count uint32
	if err := check(vulkan.GetSwapchainImages(d.device, sc.handle, &count, nil), "get swapchain images"); err != nil {
		d.destroySwapchain(sc)
		return nil, err
	}
	sc.images = make([]vulkan.Image, count)
	if err := check(vulkan.GetSwapchainImages(d.device, sc.handle, &count, sc.images), "get swapchain images"); err != nil {
		d.destroySwapchain(sc)
		return nil, err
	}

	sc.views = make([]vulkan.ImageView, 0, count)
	for i, img := range sc.images {
		view, err := d.createImageView(img, sc.format, vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit), 1)
		if err != nil {
			d.destroySwapchain(sc)
			return nil, errors.Wrapf(err, "swapchain image %d", i)
		}
		sc.views = append(sc.views, view)
	}

	uboSize := vulkan.DeviceSize(unsafe.Sizeof(transform.MVP{}))
	sc.uniforms = make([]*Buffer, 0, count)
	for i := range sc.images {
		buf, err := d.createBuffer(uboSize,
			vulkan.BufferUsageFlags(vulkan.BufferUsageUniformBufferBit),
			vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit)
		if err != nil {
			d.destroySwapchain(sc)
			return nil, errors.Wrapf(err, "uniform buffer %d", i)
		}
		sc.uniforms = append(sc.uniforms, buf)
	}
	return sc, nil
}

// destroySwapchain releases uniform buffers, image views and the swapchain.
// The images belong to the swapchain.
func (d *Device) destroySwapchain(sc *swapchain) {
	if sc == nil {
		return
	}
	for _, buf := range sc.uniforms {
		buf.Destroy()
	}
	sc.uniforms = nil
	for _, view := range sc.views {
		vulkan.DestroyImageView(d.device, view, nil)
	}
	sc.views = nil
	sc.images = nil
	if sc.handle != vulkan.Swapchain(vulkan.NullHandle) {
		vulkan.DestroySwapchain(d.device, sc.handle, nil)
		sc.handle = vulkan.Swapchain(vulkan.NullHandle)
	}
}
