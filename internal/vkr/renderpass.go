package vkr

import (
	"github.com/vulkan-go/vulkan"
)

// createRenderPass builds a single subpass with a multisampled colour
// attachment, a multisampled depth attachment and a single-sample resolve
// attachment that is presented.
func (d *Device) createRenderPass(colorFormat, depthFormat vulkan.Format) (vulkan.RenderPass, error) {
	colorAttachment := vulkan.AttachmentDescription{
		Format:         colorFormat,
		Samples:        d.msaaSamples,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpStore,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutColorAttachmentOptimal,
	}
	depthAttachment := vulkan.AttachmentDescription{
		Format:         depthFormat,
		Samples:        d.msaaSamples,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpDontCare,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}
	resolveAttachment := vulkan.AttachmentDescription{
		Format:         colorFormat,
		Samples:        vulkan.SampleCount1Bit,
		LoadOp:         vulkan.AttachmentLoadOpDontCare,
		StoreOp:        vulkan.AttachmentStoreOpStore,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutPresentSrc,
	}

	colorRef := vulkan.AttachmentReference{
		Attachment: 0,
		Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
	}
	depthRef := vulkan.AttachmentReference{
		Attachment: 1,
		Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}
	resolveRef := vulkan.AttachmentReference{
		Attachment: 2,
		Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
	}

	subpass := vulkan.SubpassDescription{
		PipelineBindPoint:       vulkan.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vulkan.AttachmentReference{colorRef},
		PResolveAttachments:     []vulkan.AttachmentReference{resolveRef},
		PDepthStencilAttachment: &depthRef,
	}

	dependency := vulkan.SubpassDependency{
		SrcSubpass:    vulkan.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit),
	}

	attachments := []vulkan.AttachmentDescription{colorAttachment, depthAttachment, resolveAttachment}
	createInfo := vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vulkan.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vulkan.SubpassDependency{dependency},
	}

	var renderPass vulkan.RenderPass
	if err := check(vulkan.CreateRenderPass(d.device, &createInfo, nil, &renderPass), "create render pass"); err != nil {
		return vulkan.RenderPass(vulkan.NullHandle), err
	}
	return renderPass, nil
}

// createFramebuffers makes one framebuffer per swapchain view, sharing the
// colour and depth targets.
func (d *Device) createFramebuffers(renderPass vulkan.RenderPass, sc *swapchain, color, depth *Image) ([]vulkan.Framebuffer, error) {
	framebuffers := make([]vulkan.Framebuffer, 0, len(sc.views))
	for i, view := range sc.views {
		attachments := []vulkan.ImageView{color.view, depth.view, view}
		createInfo := vulkan.FramebufferCreateInfo{
			SType:           vulkan.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           sc.extent.Width,
			Height:          sc.extent.Height,
			Layers:          1,
		}
		var fb vulkan.Framebuffer
		if err := checkf(vulkan.CreateFramebuffer(d.device, &createInfo, nil, &fb), "create framebuffer %d", i); err != nil {
			for _, created := range framebuffers {
				vulkan.DestroyFramebuffer(d.device, created, nil)
			}
			return nil, err
		}
		framebuffers = append(framebuffers, fb)
	}
	return framebuffers, nil
}
