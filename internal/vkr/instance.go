package vkr

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/vkmodel/internal/logging"
)

func createInstance(appName string, window Window, validation bool) (vulkan.Instance, error) {
	if validation && !validationLayersSupported() {
		return nil, errors.New("requested validation layers not available")
	}

	appInfo := vulkan.ApplicationInfo{
		SType:              vulkan.StructureTypeApplicationInfo,
		PApplicationName:   appName,
		ApplicationVersion: vulkan.MakeVersion(1, 0, 0),
		PEngineName:        "No Engine",
		EngineVersion:      vulkan.MakeVersion(1, 0, 0),
		ApiVersion:         vulkan.MakeVersion(1, 0, 0),
	}

	extensions := window.RequiredInstanceExtensions()
	if validation {
		extensions = append(extensions, "VK_EXT_debug_report")
	}

	createInfo := vulkan.InstanceCreateInfo{
		SType:                   vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if validation {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = validationLayers
	}

	var instance vulkan.Instance
	if err := check(vulkan.CreateInstance(&createInfo, nil, &instance), "create instance"); err != nil {
		return nil, err
	}
	if err := vulkan.InitInstance(instance); err != nil {
		vulkan.DestroyInstance(instance, nil)
		return nil, errors.Wrap(err, "load instance functions")
	}
	return instance, nil
}

func validationLayersSupported() bool {
	var count uint32
	if vulkan.EnumerateInstanceLayerProperties(&count, nil) != vulkan.Success {
		return false
	}
	props := make([]vulkan.LayerProperties, count)
	if vulkan.EnumerateInstanceLayerProperties(&count, props) != vulkan.Success {
		return false
	}
	supported := make(map[string]bool)
	for i := range props {
		props[i].Deref()
		supported[vulkan.ToString(props[i].LayerName[:])] = true
	}
	for _, l := range validationLayers {
		if !supported[l] {
			return false
		}
	}
	return true
}

func createDebugCallback(instance vulkan.Instance) (vulkan.DebugReportCallback, error) {
	createInfo := vulkan.DebugReportCallbackCreateInfo{
		SType: vulkan.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vulkan.DebugReportFlags(
			vulkan.DebugReportErrorBit |
				vulkan.DebugReportWarningBit |
				vulkan.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vulkan.DebugReportFlags, objectType vulkan.DebugReportObjectType, object uint64, location uint, messageCode int32, layerPrefix string, message string, userData unsafe.Pointer) vulkan.Bool32 {
			logging.Logger().Warn("validation",
				"layer", layerPrefix,
				"flags", uint32(flags),
				"code", messageCode,
				"message", message)
			return vulkan.False
		},
	}
	var callback vulkan.DebugReportCallback
	if err := check(vulkan.CreateDebugReportCallback(instance, &createInfo, nil, &callback), "create debug callback"); err != nil {
		return nil, err
	}
	return callback, nil
}

func createSurface(instance vulkan.Instance, window Window) (vulkan.Surface, error) {
	ptr, err := window.CreateSurface(instance)
	if err != nil {
		return nil, err
	}
	return vulkan.SurfaceFromPointer(ptr), nil
}
