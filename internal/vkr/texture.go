package vkr

import (
	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/vkmodel/internal/texture"
)

// textureFormat stores texels without sRGB decoding, matching the UNORM
// swapchain format preferred by chooseSurfaceFormat.
const textureFormat = vulkan.FormatR8g8b8a8Unorm

// srgbFormat reports whether sampling or writing f applies the sRGB transfer
// function.
func srgbFormat(f vulkan.Format) bool {
	switch f {
	case vulkan.FormatR8g8b8a8Srgb, vulkan.FormatB8g8r8a8Srgb:
		return true
	}
	return false
}

// uploadTexture copies pixels into a sampled, mipmapped device-local image.
func (r *Renderer) uploadTexture(pixels *texture.Pixels) (*Image, error) {
	if pixels == nil || pixels.Size() == 0 {
		return nil, errors.New("empty texture")
	}
	staging, err := r.dev.createBuffer(vulkan.DeviceSize(pixels.Size()),
		vulkan.BufferUsageFlags(vulkan.BufferUsageTransferSrcBit),
		vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, errors.Wrap(err, "create texture staging buffer")
	}
	defer staging.Destroy()
	if err := staging.Write(pixels.Data); err != nil {
		return nil, err
	}

	img, err := r.dev.createImage(imageParams{
		width:     pixels.Width,
		height:    pixels.Height,
		mipLevels: pixels.MipLevels(),
		samples:   vulkan.SampleCount1Bit,
		format:    textureFormat,
		usage: vulkan.ImageUsageFlags(vulkan.ImageUsageTransferSrcBit |
			vulkan.ImageUsageTransferDstBit |
			vulkan.ImageUsageSampledBit),
		aspect: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create texture image")
	}

	if err := r.transitionImageLayout(img, vulkan.ImageLayoutUndefined, vulkan.ImageLayoutTransferDstOptimal); err != nil {
		img.Destroy()
		return nil, err
	}
	if err := r.copyBufferToImage(staging, img, pixels.Width, pixels.Height); err != nil {
		img.Destroy()
		return nil, err
	}
	if img.mipLevels == 1 {
		err = r.transitionImageLayout(img, vulkan.ImageLayoutTransferDstOptimal, vulkan.ImageLayoutShaderReadOnlyOptimal)
	} else {
		err = r.generateMipmaps(img, pixels.Width, pixels.Height)
	}
	if err != nil {
		img.Destroy()
		return nil, err
	}
	return img, nil
}

func (r *Renderer) createTextureSampler(mipLevels uint32) (vulkan.Sampler, error) {
	samplerInfo := vulkan.SamplerCreateInfo{
		SType:                   vulkan.StructureTypeSamplerCreateInfo,
		MagFilter:               vulkan.FilterLinear,
		MinFilter:               vulkan.FilterLinear,
		AddressModeU:            vulkan.SamplerAddressModeRepeat,
		AddressModeV:            vulkan.SamplerAddressModeRepeat,
		AddressModeW:            vulkan.SamplerAddressModeRepeat,
		AnisotropyEnable:        vulkan.True,
		MaxAnisotropy:           r.dev.maxAnisotropy,
		BorderColor:             vulkan.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vulkan.False,
		CompareEnable:           vulkan.False,
		CompareOp:               vulkan.CompareOpAlways,
		MipmapMode:              vulkan.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  float32(mipLevels),
	}
	var sampler vulkan.Sampler
	if err := check(vulkan.CreateSampler(r.dev.device, &samplerInfo, nil, &sampler), "create texture sampler"); err != nil {
		return vulkan.Sampler(vulkan.NullHandle), err
	}
	return sampler, nil
}
