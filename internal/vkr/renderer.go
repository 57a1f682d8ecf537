package vkr

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/vkmodel/internal/frame"
	"github.com/hellhand/vkmodel/internal/logging"
	"github.com/hellhand/vkmodel/internal/mesh"
	"github.com/hellhand/vkmodel/internal/texture"
	"github.com/hellhand/vkmodel/internal/transform"
)

// Options configures a Renderer.
type Options struct {
	AppName    string
	Validation bool
	ShaderDir  string
	Mesh       *mesh.Mesh
	Texture    *texture.Pixels
}

// Renderer draws a single textured, indexed mesh into a window surface. It
// implements frame.Target and frame.SyncFactory.
type Renderer struct {
	dev       *Device
	shaderDir string
	start     time.Time

	// Created once.
	commandPool vulkan.CommandPool
	setLayout   vulkan.DescriptorSetLayout
	vertices    *Buffer
	indices     *Buffer
	indexCount  uint32
	texture     *Image
	sampler     vulkan.Sampler

	// Rebuilt with the swapchain.
	sc             *swapchain
	descriptorPool vulkan.DescriptorPool
	descriptorSets []vulkan.DescriptorSet
	color          *Image
	depth          *Image
	renderPass     vulkan.RenderPass
	pipelineLayout vulkan.PipelineLayout
	pipeline       vulkan.Pipeline
	framebuffers   []vulkan.Framebuffer
	commandBuffers []vulkan.CommandBuffer
}

var (
	_ frame.Target      = (*Renderer)(nil)
	_ frame.SyncFactory = (*Renderer)(nil)
)

// New initializes the device, uploads the mesh and texture and builds the
// swapchain for the window's current framebuffer size.
func New(window Window, opts Options) (*Renderer, error) {
	if opts.Mesh == nil || len(opts.Mesh.Indices) == 0 {
		return nil, errors.New("renderer needs a non-empty mesh")
	}
	if opts.Texture == nil {
		return nil, errors.New("renderer needs a texture")
	}
	dev, err := newDevice(opts.AppName, window, opts.Validation)
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		dev:       dev,
		shaderDir: opts.ShaderDir,
		start:     time.Now(),
	}
	if err := r.init(opts); err != nil {
		r.Destroy()
		return nil, err
	}
	width, height := frame.WaitForDrawableSize(window)
	if err := r.BuildSwapchain(width, height); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init(opts Options) error {
	var err error
	if r.commandPool, err = r.dev.createCommandPool(); err != nil {
		return err
	}
	if r.setLayout, err = r.dev.createDescriptorSetLayout(); err != nil {
		return err
	}
	if r.vertices, err = r.uploadBuffer(verticesToBytes(opts.Mesh.Vertices), vulkan.BufferUsageVertexBufferBit); err != nil {
		return errors.Wrap(err, "vertex buffer")
	}
	if r.indices, err = r.uploadBuffer(indicesToBytes(opts.Mesh.Indices), vulkan.BufferUsageIndexBufferBit); err != nil {
		return errors.Wrap(err, "index buffer")
	}
	r.indexCount = uint32(len(opts.Mesh.Indices))
	if r.texture, err = r.uploadTexture(opts.Texture); err != nil {
		return err
	}
	if r.sampler, err = r.createTextureSampler(r.texture.mipLevels); err != nil {
		return err
	}
	logging.Logger().Info("uploaded scene",
		"vertices", len(opts.Mesh.Vertices),
		"indices", r.indexCount,
		"texture", []uint32{opts.Texture.Width, opts.Texture.Height},
		"mipLevels", r.texture.mipLevels)
	return nil
}

// ImageCount returns the number of swapchain images.
func (r *Renderer) ImageCount() int {
	if r.sc == nil {
		return 0
	}
	return len(r.sc.images)
}

// Extent returns the current swapchain extent.
func (r *Renderer) Extent() (width, height uint32) {
	if r.sc == nil {
		return 0, 0
	}
	return r.sc.extent.Width, r.sc.extent.Height
}

// BuildSwapchain creates the swapchain and everything that depends on it.
func (r *Renderer) BuildSwapchain(width, height int) error {
	sc, err := r.dev.createSwapchain(width, height)
	if err != nil {
		return err
	}
	r.sc = sc
	count := uint32(len(sc.images))

	if r.descriptorPool, err = r.dev.createDescriptorPool(count); err != nil {
		return err
	}
	if r.descriptorSets, err = r.dev.createDescriptorSets(r.descriptorPool, r.setLayout, sc.uniforms, r.texture, r.sampler); err != nil {
		return err
	}

	if r.color, err = r.dev.createImage(imageParams{
		width:     sc.extent.Width,
		height:    sc.extent.Height,
		mipLevels: 1,
		samples:   r.dev.msaaSamples,
		format:    sc.format,
		usage:     vulkan.ImageUsageFlags(vulkan.ImageUsageTransientAttachmentBit | vulkan.ImageUsageColorAttachmentBit),
		aspect:    vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
	}); err != nil {
		return errors.Wrap(err, "colour target")
	}
	depthFormat, err := r.dev.findDepthFormat()
	if err != nil {
		return err
	}
	if r.depth, err = r.dev.createImage(imageParams{
		width:     sc.extent.Width,
		height:    sc.extent.Height,
		mipLevels: 1,
		samples:   r.dev.msaaSamples,
		format:    depthFormat,
		usage:     vulkan.ImageUsageFlags(vulkan.ImageUsageDepthStencilAttachmentBit),
		aspect:    vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit),
	}); err != nil {
		return errors.Wrap(err, "depth target")
	}

	if r.renderPass, err = r.dev.createRenderPass(sc.format, depthFormat); err != nil {
		return err
	}
	if r.pipelineLayout, r.pipeline, err = r.dev.createGraphicsPipeline(r.shaderDir, r.renderPass, r.setLayout, sc.extent); err != nil {
		return err
	}
	if r.framebuffers, err = r.dev.createFramebuffers(r.renderPass, sc, r.color, r.depth); err != nil {
		return err
	}
	if r.commandBuffers, err = r.dev.recordCommandBuffers(r.commandPool, drawState{
		renderPass:   r.renderPass,
		framebuffers: r.framebuffers,
		extent:       sc.extent,
		pipeline:     r.pipeline,
		layout:       r.pipelineLayout,
		sets:         r.descriptorSets,
		vertices:     r.vertices,
		indices:      r.indices,
		indexCount:   r.indexCount,
	}); err != nil {
		return err
	}

	if srgbFormat(sc.format) != srgbFormat(textureFormat) {
		logging.Logger().Warn("swapchain and texture colour encodings differ",
			"swapchainFormat", int(sc.format),
			"textureFormat", int(textureFormat))
	}
	logging.Logger().Info("swapchain ready",
		"images", count,
		"extent", []uint32{sc.extent.Width, sc.extent.Height},
		"format", int(sc.format),
		"presentMode", int(sc.presentMode))
	return nil
}

// DestroySwapchain releases everything BuildSwapchain created, in reverse
// dependency order. It is safe on a partially built swapchain.
func (r *Renderer) DestroySwapchain() {
	device := r.dev.device
	for _, fb := range r.framebuffers {
		vulkan.DestroyFramebuffer(device, fb, nil)
	}
	r.framebuffers = nil
	if len(r.commandBuffers) > 0 {
		vulkan.FreeCommandBuffers(device, r.commandPool, uint32(len(r.commandBuffers)), r.commandBuffers)
		r.commandBuffers = nil
	}
	if r.pipeline != vulkan.Pipeline(vulkan.NullHandle) {
		vulkan.DestroyPipeline(device, r.pipeline, nil)
		r.pipeline = vulkan.Pipeline(vulkan.NullHandle)
	}
	if r.pipelineLayout != vulkan.PipelineLayout(vulkan.NullHandle) {
		vulkan.DestroyPipelineLayout(device, r.pipelineLayout, nil)
		r.pipelineLayout = vulkan.PipelineLayout(vulkan.NullHandle)
	}
	if r.renderPass != vulkan.RenderPass(vulkan.NullHandle) {
		vulkan.DestroyRenderPass(device, r.renderPass, nil)
		r.renderPass = vulkan.RenderPass(vulkan.NullHandle)
	}
	r.color.Destroy()
	r.color = nil
	r.depth.Destroy()
	r.depth = nil
	if r.descriptorPool != vulkan.DescriptorPool(vulkan.NullHandle) {
		vulkan.DestroyDescriptorPool(device, r.descriptorPool, nil)
		r.descriptorPool = vulkan.DescriptorPool(vulkan.NullHandle)
	}
	r.descriptorSets = nil
	r.dev.destroySwapchain(r.sc)
	r.sc = nil
}

// Acquire requests the next presentable image, signalling signal when it
// is ready to be rendered to.
func (r *Renderer) Acquire(signal frame.Semaphore) (uint32, frame.Status, error) {
	sem, err := semaphoreHandle(signal)
	if err != nil {
		return 0, frame.StatusSuccess, err
	}
	var imageIndex uint32
	res := vulkan.AcquireNextImage(r.dev.device, r.sc.handle, vulkan.MaxUint64, sem, vulkan.Fence(vulkan.NullHandle), &imageIndex)
	status, err := surfaceStatus(res, "acquire next image")
	return imageIndex, status, err
}

// UpdateUniforms writes this frame's transforms into the image's uniform buffer.
func (r *Renderer) UpdateUniforms(imageIndex uint32) error {
	if int(imageIndex) >= len(r.sc.uniforms) {
		return errors.Errorf("image index %d out of range", imageIndex)
	}
	mvp := transform.Spin(time.Since(r.start), r.sc.extent.Width, r.sc.extent.Height)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&mvp)), unsafe.Sizeof(mvp))
	return errors.Wrapf(r.sc.uniforms[imageIndex].Write(data), "update uniforms for image %d", imageIndex)
}

// Submit queues the image's prerecorded command buffer. Execution waits on
// wait at the colour-attachment-output stage; completion signals signal and
// fence.
func (r *Renderer) Submit(imageIndex uint32, wait, signal frame.Semaphore, fence frame.Fence) error {
	waitSem, err := semaphoreHandle(wait)
	if err != nil {
		return err
	}
	signalSem, err := semaphoreHandle(signal)
	if err != nil {
		return err
	}
	f, err := fenceHandle(fence)
	if err != nil {
		return err
	}
	if int(imageIndex) >= len(r.commandBuffers) {
		return errors.Errorf("image index %d out of range", imageIndex)
	}
	submitInfo := vulkan.SubmitInfo{
		SType:                vulkan.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vulkan.Semaphore{waitSem},
		PWaitDstStageMask:    []vulkan.PipelineStageFlags{vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vulkan.CommandBuffer{r.commandBuffers[imageIndex]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vulkan.Semaphore{signalSem},
	}
	return check(vulkan.QueueSubmit(r.dev.graphicsQueue, 1, []vulkan.SubmitInfo{submitInfo}, f), "queue submit")
}

// Present queues the image for display once wait is signaled.
func (r *Renderer) Present(imageIndex uint32, wait frame.Semaphore) (frame.Status, error) {
	sem, err := semaphoreHandle(wait)
	if err != nil {
		return frame.StatusSuccess, err
	}
	presentInfo := vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{sem},
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{r.sc.handle},
		PImageIndices:      []uint32{imageIndex},
	}
	return surfaceStatus(vulkan.QueuePresent(r.dev.presentQueue, &presentInfo), "queue present")
}

// WaitIdle blocks until the device is idle.
func (r *Renderer) WaitIdle() error { return r.dev.WaitIdle() }

// Destroy waits for the device and releases every object the renderer owns.
func (r *Renderer) Destroy() {
	if r == nil || r.dev == nil {
		return
	}
	if err := r.dev.WaitIdle(); err != nil {
		logging.Logger().Warn("wait idle before destroy", "err", err)
	}
	r.DestroySwapchain()

	device := r.dev.device
	if r.sampler != vulkan.Sampler(vulkan.NullHandle) {
		vulkan.DestroySampler(device, r.sampler, nil)
		r.sampler = vulkan.Sampler(vulkan.NullHandle)
	}
	r.texture.Destroy()
	r.texture = nil
	r.indices.Destroy()
	r.indices = nil
	r.vertices.Destroy()
	r.vertices = nil
	if r.setLayout != vulkan.DescriptorSetLayout(vulkan.NullHandle) {
		vulkan.DestroyDescriptorSetLayout(device, r.setLayout, nil)
		r.setLayout = vulkan.DescriptorSetLayout(vulkan.NullHandle)
	}
	if r.commandPool != vulkan.CommandPool(vulkan.NullHandle) {
		vulkan.DestroyCommandPool(device, r.commandPool, nil)
		r.commandPool = vulkan.CommandPool(vulkan.NullHandle)
	}
	r.dev.Destroy()
	r.dev = nil
}

// surfaceStatus maps the results acquire and present share. Anything other
// than success, suboptimal or out-of-date is an error.
func surfaceStatus(res vulkan.Result, what string) (frame.Status, error) {
	switch res {
	case vulkan.Success:
		return frame.StatusSuccess, nil
	case vulkan.Suboptimal:
		return frame.StatusSuboptimal, nil
	case vulkan.ErrorOutOfDate:
		return frame.StatusOutOfDate, nil
	default:
		return frame.StatusSuccess, check(res, what)
	}
}
