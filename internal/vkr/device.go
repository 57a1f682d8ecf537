package vkr

import (
	"math"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/vkmodel/internal/logging"
)

type queueFamilyIndices struct {
	graphicsFamily uint32
	presentFamily  uint32
	hasGraphics    bool
	hasPresent     bool
}

func (q queueFamilyIndices) complete() bool { return q.hasGraphics && q.hasPresent }

type swapchainSupport struct {
	capabilities vulkan.SurfaceCapabilities
	formats      []vulkan.SurfaceFormat
	presentModes []vulkan.PresentMode
}

// Device owns the instance, the presentation surface, the chosen GPU and the
// logical device with its graphics and present queues.
type Device struct {
	instance      vulkan.Instance
	debugCallback vulkan.DebugReportCallback
	surface       vulkan.Surface
	gpu           vulkan.PhysicalDevice
	device        vulkan.Device
	graphicsQueue vulkan.Queue
	presentQueue  vulkan.Queue
	queues        queueFamilyIndices

	name          string
	msaaSamples   vulkan.SampleCountFlagBits
	sampleShading bool
	maxAnisotropy float32
}

func newDevice(appName string, window Window, validation bool) (*Device, error) {
	d := &Device{}
	var err error
	if d.instance, err = createInstance(appName, window, validation); err != nil {
		return nil, err
	}
	if validation {
		if d.debugCallback, err = createDebugCallback(d.instance); err != nil {
			d.Destroy()
			return nil, err
		}
	}
	if d.surface, err = createSurface(d.instance, window); err != nil {
		d.Destroy()
		return nil, err
	}
	if err = d.pickPhysicalDevice(); err != nil {
		d.Destroy()
		return nil, err
	}
	if err = d.createLogicalDevice(validation); err != nil {
		d.Destroy()
		return nil, err
	}
	logging.Logger().Info("selected GPU",
		"device", d.name,
		"msaa", int(d.msaaSamples),
		"sampleShading", d.sampleShading,
		"graphicsFamily", d.queues.graphicsFamily,
		"presentFamily", d.queues.presentFamily)
	return d, nil
}

func (d *Device) pickPhysicalDevice() error {
	var count uint32
	if res := vulkan.EnumeratePhysicalDevices(d.instance, &count, nil); res != vulkan.Success {
		return check(res, "enumerate physical devices")
	}
	if count == 0 {
		return errors.New("no GPU with Vulkan support found")
	}
	devices := make([]vulkan.PhysicalDevice, count)
	if err := check(vulkan.EnumeratePhysicalDevices(d.instance, &count, devices), "enumerate physical devices list"); err != nil {
		return err
	}

	var selected vulkan.PhysicalDevice
	var selectedQueues queueFamilyIndices
	bestScore := int64(-1)
	for _, dev := range devices {
		q := d.findQueueFamilies(dev)
		if !q.complete() || !deviceExtensionsSupported(dev) {
			continue
		}
		support := d.querySwapchainSupport(dev)
		if len(support.formats) == 0 || len(support.presentModes) == 0 {
			continue
		}
		var features vulkan.PhysicalDeviceFeatures
		vulkan.GetPhysicalDeviceFeatures(dev, &features)
		features.Deref()
		if features.SamplerAnisotropy != vulkan.True {
			continue
		}
		if score := deviceScore(dev); score > bestScore {
			bestScore = score
			selected = dev
			selectedQueues = q
		}
	}
	if selected == vulkan.PhysicalDevice(vulkan.NullHandle) {
		return errors.New("no suitable GPU found")
	}

	d.gpu = selected
	d.queues = selectedQueues

	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(d.gpu, &props)
	props.Deref()
	props.Limits.Deref()
	d.name = vulkan.ToString(props.DeviceName[:])
	d.maxAnisotropy = props.Limits.MaxSamplerAnisotropy
	d.msaaSamples = maxUsableSampleCount(props.Limits.FramebufferColorSampleCounts & props.Limits.FramebufferDepthSampleCounts)
	return nil
}

// deviceScore prefers discrete GPUs, then larger maximum texture size.
func deviceScore(device vulkan.PhysicalDevice) int64 {
	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(device, &props)
	props.Deref()
	props.Limits.Deref()

	var score int64
	if props.DeviceType == vulkan.PhysicalDeviceTypeDiscreteGpu {
		score += 1000
	}
	return score + int64(props.Limits.MaxImageDimension2D)
}

var sampleCounts = []vulkan.SampleCountFlagBits{
	vulkan.SampleCount64Bit,
	vulkan.SampleCount32Bit,
	vulkan.SampleCount16Bit,
	vulkan.SampleCount8Bit,
	vulkan.SampleCount4Bit,
	vulkan.SampleCount2Bit,
}

// maxUsableSampleCount picks the highest sample count present in counts.
func maxUsableSampleCount(counts vulkan.SampleCountFlags) vulkan.SampleCountFlagBits {
	for _, c := range sampleCounts {
		if counts&vulkan.SampleCountFlags(c) != 0 {
			return c
		}
	}
	return vulkan.SampleCount1Bit
}

func deviceExtensionsSupported(device vulkan.PhysicalDevice) bool {
	var count uint32
	if res := vulkan.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vulkan.Success {
		return false
	}
	props := make([]vulkan.ExtensionProperties, count)
	if res := vulkan.EnumerateDeviceExtensionProperties(device, "", &count, props); res != vulkan.Success {
		return false
	}
	supported := make(map[string]bool)
	for i := range props {
		props[i].Deref()
		supported[vulkan.ToString(props[i].ExtensionName[:])] = true
	}
	for _, ext := range deviceExtensions {
		if !supported[ext] {
			return false
		}
	}
	return true
}

func (d *Device) findQueueFamilies(device vulkan.PhysicalDevice) queueFamilyIndices {
	var count uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &count, nil)
	props := make([]vulkan.QueueFamilyProperties, count)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &count, props)

	var indices queueFamilyIndices
	for i := range props {
		props[i].Deref()
		if props[i].QueueFlags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) != 0 && !indices.hasGraphics {
			indices.graphicsFamily = uint32(i)
			indices.hasGraphics = true
		}
		var present vulkan.Bool32
		vulkan.GetPhysicalDeviceSurfaceSupport(device, uint32(i), d.surface, &present)
		if present == vulkan.True && !indices.hasPresent {
			indices.presentFamily = uint32(i)
			indices.hasPresent = true
		}
		if indices.complete() {
			break
		}
	}
	return indices
}

func (d *Device) querySwapchainSupport(device vulkan.PhysicalDevice) swapchainSupport {
	var details swapchainSupport
	vulkan.GetPhysicalDeviceSurfaceCapabilities(device, d.surface, &details.capabilities)
	details.capabilities.Deref()
	details.capabilities.CurrentExtent.Deref()
	details.capabilities.MinImageExtent.Deref()
	details.capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	vulkan.GetPhysicalDeviceSurfaceFormats(device, d.surface, &formatCount, nil)
	if formatCount > 0 {
		details.formats = make([]vulkan.SurfaceFormat, formatCount)
		vulkan.GetPhysicalDeviceSurfaceFormats(device, d.surface, &formatCount, details.formats)
		for i := range details.formats {
			details.formats[i].Deref()
		}
	}

	var presentCount uint32
	vulkan.GetPhysicalDeviceSurfacePresentModes(device, d.surface, &presentCount, nil)
	if presentCount > 0 {
		details.presentModes = make([]vulkan.PresentMode, presentCount)
		vulkan.GetPhysicalDeviceSurfacePresentModes(device, d.surface, &presentCount, details.presentModes)
	}
	return details
}

func (d *Device) createLogicalDevice(validation bool) error {
	var supported vulkan.PhysicalDeviceFeatures
	vulkan.GetPhysicalDeviceFeatures(d.gpu, &supported)
	supported.Deref()
	d.sampleShading = supported.SampleRateShading == vulkan.True

	uniqueFamilies := []uint32{d.queues.graphicsFamily}
	if d.queues.presentFamily != d.queues.graphicsFamily {
		uniqueFamilies = append(uniqueFamilies, d.queues.presentFamily)
	}
	queueInfos := make([]vulkan.DeviceQueueCreateInfo, 0, len(uniqueFamilies))
	for _, family := range uniqueFamilies {
		queueInfos = append(queueInfos, vulkan.DeviceQueueCreateInfo{
			SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	features := vulkan.PhysicalDeviceFeatures{
		SamplerAnisotropy: vulkan.True,
	}
	if d.sampleShading {
		features.SampleRateShading = vulkan.True
	}
	createInfo := vulkan.DeviceCreateInfo{
		SType:                   vulkan.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vulkan.PhysicalDeviceFeatures{features},
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: deviceExtensions,
	}
	if validation {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = validationLayers
	}

	var device vulkan.Device
	if err := check(vulkan.CreateDevice(d.gpu, &createInfo, nil, &device), "create logical device"); err != nil {
		return err
	}
	d.device = device
	vulkan.GetDeviceQueue(d.device, d.queues.graphicsFamily, 0, &d.graphicsQueue)
	vulkan.GetDeviceQueue(d.device, d.queues.presentFamily, 0, &d.presentQueue)
	return nil
}

func (d *Device) findSupportedFormat(candidates []vulkan.Format, tiling vulkan.ImageTiling, features vulkan.FormatFeatureFlags) (vulkan.Format, error) {
	for _, format := range candidates {
		var props vulkan.FormatProperties
		vulkan.GetPhysicalDeviceFormatProperties(d.gpu, format, &props)
		props.Deref()
		if tiling == vulkan.ImageTilingLinear && props.LinearTilingFeatures&features == features {
			return format, nil
		}
		if tiling == vulkan.ImageTilingOptimal && props.OptimalTilingFeatures&features == features {
			return format, nil
		}
	}
	return vulkan.FormatUndefined, errors.New("no supported format found")
}

func (d *Device) findDepthFormat() (vulkan.Format, error) {
	candidates := []vulkan.Format{
		vulkan.FormatD32Sfloat,
		vulkan.FormatD32SfloatS8Uint,
		vulkan.FormatD24UnormS8Uint,
	}
	format, err := d.findSupportedFormat(candidates, vulkan.ImageTilingOptimal,
		vulkan.FormatFeatureFlags(vulkan.FormatFeatureDepthStencilAttachmentBit))
	return format, errors.Wrap(err, "find depth format")
}

func (d *Device) findMemoryType(typeFilter uint32, properties vulkan.MemoryPropertyFlagBits) (uint32, error) {
	var memProps vulkan.PhysicalDeviceMemoryProperties
	vulkan.GetPhysicalDeviceMemoryProperties(d.gpu, &memProps)
	memProps.Deref()

	want := vulkan.MemoryPropertyFlags(properties)
	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memoryType := memProps.MemoryTypes[i]
		memoryType.Deref()
		if typeFilter&(1<<i) != 0 && memoryType.PropertyFlags&want == want {
			return i, nil
		}
	}
	return 0, errors.Errorf("no memory type for filter %#x with properties %#x", typeFilter, uint32(properties))
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	return check(vulkan.DeviceWaitIdle(d.device), "wait device idle")
}

// Destroy releases the device, surface and instance. It is safe on a
// partially constructed Device.
func (d *Device) Destroy() {
	if d.device != vulkan.Device(vulkan.NullHandle) {
		vulkan.DestroyDevice(d.device, nil)
		d.device = vulkan.Device(vulkan.NullHandle)
	}
	if d.debugCallback != vulkan.DebugReportCallback(vulkan.NullHandle) {
		vulkan.DestroyDebugReportCallback(d.instance, d.debugCallback, nil)
		d.debugCallback = vulkan.DebugReportCallback(vulkan.NullHandle)
	}
	if d.surface != vulkan.Surface(vulkan.NullHandle) {
		vulkan.DestroySurface(d.instance, d.surface, nil)
		d.surface = vulkan.Surface(vulkan.NullHandle)
	}
	if d.instance != vulkan.Instance(vulkan.NullHandle) {
		vulkan.DestroyInstance(d.instance, nil)
		d.instance = vulkan.Instance(vulkan.NullHandle)
	}
}

func clamp(val, min, max uint32) uint32 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

const undefinedExtent = math.MaxUint32
