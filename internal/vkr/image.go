package vkr

import (
	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

// Image is a VkImage with its memory and a view over all of its mip levels.
type Image struct {
	device    vulkan.Device
	image     vulkan.Image
	memory    vulkan.DeviceMemory
	view      vulkan.ImageView
	format    vulkan.Format
	mipLevels uint32
}

// GetImage returns the raw image handle.
func (i *Image) GetImage() vulkan.Image { return i.image }

// GetView returns the image view.
func (i *Image) GetView() vulkan.ImageView { return i.view }

// Destroy releases the view, image and memory.
func (i *Image) Destroy() {
	if i == nil {
		return
	}
	if i.view != vulkan.ImageView(vulkan.NullHandle) {
		vulkan.DestroyImageView(i.device, i.view, nil)
		i.view = vulkan.ImageView(vulkan.NullHandle)
	}
	if i.image != vulkan.Image(vulkan.NullHandle) {
		vulkan.DestroyImage(i.device, i.image, nil)
		i.image = vulkan.Image(vulkan.NullHandle)
	}
	if i.memory != vulkan.DeviceMemory(vulkan.NullHandle) {
		vulkan.FreeMemory(i.device, i.memory, nil)
		i.memory = vulkan.DeviceMemory(vulkan.NullHandle)
	}
}

type imageParams struct {
	width, height uint32
	mipLevels     uint32
	samples       vulkan.SampleCountFlagBits
	format        vulkan.Format
	usage         vulkan.ImageUsageFlags
	aspect        vulkan.ImageAspectFlags
}

// createImage allocates a device-local optimal-tiling 2D image and its view.
func (d *Device) createImage(p imageParams) (*Image, error) {
	createInfo := vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		ImageType: vulkan.ImageType2d,
		Extent: vulkan.Extent3D{
			Width:  p.width,
			Height: p.height,
			Depth:  1,
		},
		MipLevels:     p.mipLevels,
		ArrayLayers:   1,
		Format:        p.format,
		Tiling:        vulkan.ImageTilingOptimal,
		InitialLayout: vulkan.ImageLayoutUndefined,
		Usage:         p.usage,
		Samples:       p.samples,
		SharingMode:   vulkan.SharingModeExclusive,
	}
	img := &Image{device: d.device, format: p.format, mipLevels: p.mipLevels}
	if err := check(vulkan.CreateImage(d.device, &createInfo, nil, &img.image), "create image"); err != nil {
		return nil, err
	}

	var memReq vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(d.device, img.image, &memReq)
	memReq.Deref()
	memoryType, err := d.findMemoryType(memReq.MemoryTypeBits, vulkan.MemoryPropertyDeviceLocalBit)
	if err != nil {
		img.Destroy()
		return nil, errors.Wrap(err, "image memory")
	}
	allocInfo := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memoryType,
	}
	if err := check(vulkan.AllocateMemory(d.device, &allocInfo, nil, &img.memory), "allocate image memory"); err != nil {
		img.Destroy()
		return nil, err
	}
	if err := check(vulkan.BindImageMemory(d.device, img.image, img.memory, 0), "bind image memory"); err != nil {
		img.Destroy()
		return nil, err
	}
	if img.view, err = d.createImageView(img.image, p.format, p.aspect, p.mipLevels); err != nil {
		img.Destroy()
		return nil, err
	}
	return img, nil
}

func (d *Device) createImageView(image vulkan.Image, format vulkan.Format, aspect vulkan.ImageAspectFlags, mipLevels uint32) (vulkan.ImageView, error) {
	viewInfo := vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vulkan.ImageViewType2d,
		Format:   format,
		Components: vulkan.ComponentMapping{
			R: vulkan.ComponentSwizzleIdentity,
			G: vulkan.ComponentSwizzleIdentity,
			B: vulkan.ComponentSwizzleIdentity,
			A: vulkan.ComponentSwizzleIdentity,
		},
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vulkan.ImageView
	if err := check(vulkan.CreateImageView(d.device, &viewInfo, nil, &view), "create image view"); err != nil {
		return vulkan.ImageView(vulkan.NullHandle), err
	}
	return view, nil
}

// singleTimeCommands records fn into a throwaway command buffer, submits it
// to the graphics queue and waits for the queue to drain.
func (r *Renderer) singleTimeCommands(fn func(cb vulkan.CommandBuffer)) error {
	allocInfo := vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        r.commandPool,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vulkan.CommandBuffer, 1)
	if err := check(vulkan.AllocateCommandBuffers(r.dev.device, &allocInfo, cbs), "allocate transfer command buffer"); err != nil {
		return err
	}
	defer vulkan.FreeCommandBuffers(r.dev.device, r.commandPool, 1, cbs)

	beginInfo := vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check(vulkan.BeginCommandBuffer(cbs[0], &beginInfo), "begin transfer command buffer"); err != nil {
		return err
	}
	fn(cbs[0])
	if err := check(vulkan.EndCommandBuffer(cbs[0]), "end transfer command buffer"); err != nil {
		return err
	}

	submitInfo := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    cbs,
	}
	if err := check(vulkan.QueueSubmit(r.dev.graphicsQueue, 1, []vulkan.SubmitInfo{submitInfo}, vulkan.Fence(vulkan.NullHandle)), "submit transfer commands"); err != nil {
		return err
	}
	return check(vulkan.QueueWaitIdle(r.dev.graphicsQueue), "wait for transfer commands")
}

func colorRange(baseMip, levels uint32) vulkan.ImageSubresourceRange {
	return vulkan.ImageSubresourceRange{
		AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
		BaseMipLevel:   baseMip,
		LevelCount:     levels,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func (r *Renderer) transitionImageLayout(img *Image, oldLayout, newLayout vulkan.ImageLayout) error {
	barrier := vulkan.ImageMemoryBarrier{
		SType:               vulkan.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		Image:               img.image,
		SubresourceRange:    colorRange(0, img.mipLevels),
	}

	var srcStage, dstStage vulkan.PipelineStageFlagBits
	switch {
	case oldLayout == vulkan.ImageLayoutUndefined && newLayout == vulkan.ImageLayoutTransferDstOptimal:
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
		srcStage = vulkan.PipelineStageTopOfPipeBit
		dstStage = vulkan.PipelineStageTransferBit
	case oldLayout == vulkan.ImageLayoutTransferDstOptimal && newLayout == vulkan.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessShaderReadBit)
		srcStage = vulkan.PipelineStageTransferBit
		dstStage = vulkan.PipelineStageFragmentShaderBit
	default:
		return errors.Errorf("unsupported layout transition %d -> %d", oldLayout, newLayout)
	}

	return r.singleTimeCommands(func(cb vulkan.CommandBuffer) {
		vulkan.CmdPipelineBarrier(cb,
			vulkan.PipelineStageFlags(srcStage), vulkan.PipelineStageFlags(dstStage),
			0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})
	})
}

func (r *Renderer) copyBufferToImage(buf *Buffer, img *Image, width, height uint32) error {
	return r.singleTimeCommands(func(cb vulkan.CommandBuffer) {
		region := vulkan.BufferImageCopy{
			BufferOffset:      0,
			BufferRowLength:   0,
			BufferImageHeight: 0,
			ImageSubresource: vulkan.ImageSubresourceLayers{
				AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: vulkan.Offset3D{X: 0, Y: 0, Z: 0},
			ImageExtent: vulkan.Extent3D{Width: width, Height: height, Depth: 1},
		}
		vulkan.CmdCopyBufferToImage(cb, buf.buffer, img.image,
			vulkan.ImageLayoutTransferDstOptimal, 1, []vulkan.BufferImageCopy{region})
	})
}

// generateMipmaps fills levels 1..n-1 of img by successive linear blits from
// the level above, leaving every level in shader-read layout. Level 0 must be
// in transfer-dst layout on entry.
func (r *Renderer) generateMipmaps(img *Image, width, height uint32) error {
	var props vulkan.FormatProperties
	vulkan.GetPhysicalDeviceFormatProperties(r.dev.gpu, img.format, &props)
	props.Deref()
	if props.OptimalTilingFeatures&vulkan.FormatFeatureFlags(vulkan.FormatFeatureSampledImageFilterLinearBit) == 0 {
		return errors.Errorf("texture format %d does not support linear blitting", img.format)
	}

	return r.singleTimeCommands(func(cb vulkan.CommandBuffer) {
		barrier := vulkan.ImageMemoryBarrier{
			SType:               vulkan.StructureTypeImageMemoryBarrier,
			SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
			DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
			Image:               img.image,
		}
		mipWidth, mipHeight := int32(width), int32(height)
		for level := uint32(1); level < img.mipLevels; level++ {
			barrier.SubresourceRange = colorRange(level-1, 1)
			barrier.OldLayout = vulkan.ImageLayoutTransferDstOptimal
			barrier.NewLayout = vulkan.ImageLayoutTransferSrcOptimal
			barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
			barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessTransferReadBit)
			vulkan.CmdPipelineBarrier(cb,
				vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
				vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
				0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})

			nextWidth, nextHeight := halve(mipWidth), halve(mipHeight)
			blit := vulkan.ImageBlit{
				SrcSubresource: vulkan.ImageSubresourceLayers{
					AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
					MipLevel:       level - 1,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				SrcOffsets: [2]vulkan.Offset3D{{X: 0, Y: 0, Z: 0}, {X: mipWidth, Y: mipHeight, Z: 1}},
				DstSubresource: vulkan.ImageSubresourceLayers{
					AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
					MipLevel:       level,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				DstOffsets: [2]vulkan.Offset3D{{X: 0, Y: 0, Z: 0}, {X: nextWidth, Y: nextHeight, Z: 1}},
			}
			vulkan.CmdBlitImage(cb,
				img.image, vulkan.ImageLayoutTransferSrcOptimal,
				img.image, vulkan.ImageLayoutTransferDstOptimal,
				1, []vulkan.ImageBlit{blit}, vulkan.FilterLinear)

			barrier.OldLayout = vulkan.ImageLayoutTransferSrcOptimal
			barrier.NewLayout = vulkan.ImageLayoutShaderReadOnlyOptimal
			barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferReadBit)
			barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessShaderReadBit)
			vulkan.CmdPipelineBarrier(cb,
				vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
				vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit),
				0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})

			mipWidth, mipHeight = nextWidth, nextHeight
		}

		barrier.SubresourceRange = colorRange(img.mipLevels-1, 1)
		barrier.OldLayout = vulkan.ImageLayoutTransferDstOptimal
		barrier.NewLayout = vulkan.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessShaderReadBit)
		vulkan.CmdPipelineBarrier(cb,
			vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
			vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit),
			0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})
	})
}

func halve(v int32) int32 {
	if v > 1 {
		return v / 2
	}
	return 1
}
