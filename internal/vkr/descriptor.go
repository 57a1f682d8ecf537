package vkr

import (
	"github.com/vulkan-go/vulkan"
)

// createDescriptorSetLayout declares the uniform block at binding 0 for the
// vertex stage and the texture sampler at binding 1 for the fragment stage.
func (d *Device) createDescriptorSetLayout() (vulkan.DescriptorSetLayout, error) {
	bindings := []vulkan.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vulkan.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit),
		},
		{
			Binding:         1,
			DescriptorType:  vulkan.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vulkan.ShaderStageFlags(vulkan.ShaderStageFragmentBit),
		},
	}
	layoutInfo := vulkan.DescriptorSetLayoutCreateInfo{
		SType:        vulkan.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vulkan.DescriptorSetLayout
	if err := check(vulkan.CreateDescriptorSetLayout(d.device, &layoutInfo, nil, &layout), "create descriptor set layout"); err != nil {
		return vulkan.DescriptorSetLayout(vulkan.NullHandle), err
	}
	return layout, nil
}

func (d *Device) createDescriptorPool(count uint32) (vulkan.DescriptorPool, error) {
	poolSizes := []vulkan.DescriptorPoolSize{
		{Type: vulkan.DescriptorTypeUniformBuffer, DescriptorCount: count},
		{Type: vulkan.DescriptorTypeCombinedImageSampler, DescriptorCount: count},
	}
	poolInfo := vulkan.DescriptorPoolCreateInfo{
		SType:         vulkan.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       count,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vulkan.DescriptorPool
	if err := check(vulkan.CreateDescriptorPool(d.device, &poolInfo, nil, &pool), "create descriptor pool"); err != nil {
		return vulkan.DescriptorPool(vulkan.NullHandle), err
	}
	return pool, nil
}

// createDescriptorSets allocates one set per swapchain image from pool and
// points it at that image's uniform buffer and the shared texture.
func (d *Device) createDescriptorSets(pool vulkan.DescriptorPool, layout vulkan.DescriptorSetLayout, uniforms []*Buffer, tex *Image, sampler vulkan.Sampler) ([]vulkan.DescriptorSet, error) {
	count := len(uniforms)
	layouts := make([]vulkan.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout
	}
	allocInfo := vulkan.DescriptorSetAllocateInfo{
		SType:              vulkan.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}
	sets := make([]vulkan.DescriptorSet, count)
	if err := check(vulkan.AllocateDescriptorSets(d.device, &allocInfo, &sets[0]), "allocate descriptor sets"); err != nil {
		return nil, err
	}

	for i, set := range sets {
		bufferInfo := vulkan.DescriptorBufferInfo{
			Buffer: uniforms[i].buffer,
			Offset: 0,
			Range:  uniforms[i].size,
		}
		imageInfo := vulkan.DescriptorImageInfo{
			Sampler:     sampler,
			ImageView:   tex.view,
			ImageLayout: vulkan.ImageLayoutShaderReadOnlyOptimal,
		}
		writes := []vulkan.WriteDescriptorSet{
			{
				SType:           vulkan.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      0,
				DstArrayElement: 0,
				DescriptorType:  vulkan.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				PBufferInfo:     []vulkan.DescriptorBufferInfo{bufferInfo},
			},
			{
				SType:           vulkan.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      1,
				DstArrayElement: 0,
				DescriptorType:  vulkan.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				PImageInfo:      []vulkan.DescriptorImageInfo{imageInfo},
			},
		}
		vulkan.UpdateDescriptorSets(d.device, uint32(len(writes)), writes, 0, nil)
	}
	return sets, nil
}
