package vkr

import (
	"github.com/vulkan-go/vulkan"
)

var clearColor = []float32{0, 0, 0, 1}

func (d *Device) createCommandPool() (vulkan.CommandPool, error) {
	poolInfo := vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.queues.graphicsFamily,
	}
	var pool vulkan.CommandPool
	if err := check(vulkan.CreateCommandPool(d.device, &poolInfo, nil, &pool), "create command pool"); err != nil {
		return vulkan.CommandPool(vulkan.NullHandle), err
	}
	return pool, nil
}

// drawState is everything a recorded draw references.
type drawState struct {
	renderPass   vulkan.RenderPass
	framebuffers []vulkan.Framebuffer
	extent       vulkan.Extent2D
	pipeline     vulkan.Pipeline
	layout       vulkan.PipelineLayout
	sets         []vulkan.DescriptorSet
	vertices     *Buffer
	indices      *Buffer
	indexCount   uint32
}

// recordCommandBuffers allocates one primary command buffer per framebuffer
// and records the full draw into each, once.
func (d *Device) recordCommandBuffers(pool vulkan.CommandPool, s drawState) ([]vulkan.CommandBuffer, error) {
	count := uint32(len(s.framebuffers))
	allocInfo := vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	cbs := make([]vulkan.CommandBuffer, count)
	if err := check(vulkan.AllocateCommandBuffers(d.device, &allocInfo, cbs), "allocate command buffers"); err != nil {
		return nil, err
	}
	for i, cb := range cbs {
		if err := recordDraw(cb, s, i); err != nil {
			vulkan.FreeCommandBuffers(d.device, pool, count, cbs)
			return nil, err
		}
	}
	return cbs, nil
}

func recordDraw(cb vulkan.CommandBuffer, s drawState, imageIndex int) error {
	beginInfo := vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
	}
	if err := checkf(vulkan.BeginCommandBuffer(cb, &beginInfo), "begin command buffer %d", imageIndex); err != nil {
		return err
	}

	clearValues := []vulkan.ClearValue{
		vulkan.NewClearValue(clearColor),
		vulkan.NewClearDepthStencil(1.0, 0),
	}
	renderPassInfo := vulkan.RenderPassBeginInfo{
		SType:       vulkan.StructureTypeRenderPassBeginInfo,
		RenderPass:  s.renderPass,
		Framebuffer: s.framebuffers[imageIndex],
		RenderArea: vulkan.Rect2D{
			Offset: vulkan.Offset2D{X: 0, Y: 0},
			Extent: s.extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vulkan.CmdBeginRenderPass(cb, &renderPassInfo, vulkan.SubpassContentsInline)
	vulkan.CmdBindPipeline(cb, vulkan.PipelineBindPointGraphics, s.pipeline)
	vulkan.CmdBindVertexBuffers(cb, 0, 1, []vulkan.Buffer{s.vertices.buffer}, []vulkan.DeviceSize{0})
	vulkan.CmdBindIndexBuffer(cb, s.indices.buffer, 0, vulkan.IndexTypeUint32)
	vulkan.CmdBindDescriptorSets(cb, vulkan.PipelineBindPointGraphics, s.layout, 0, 1, []vulkan.DescriptorSet{s.sets[imageIndex]}, 0, nil)
	vulkan.CmdDrawIndexed(cb, s.indexCount, 1, 0, 0, 0)
	vulkan.CmdEndRenderPass(cb)

	return checkf(vulkan.EndCommandBuffer(cb), "end command buffer %d", imageIndex)
}
