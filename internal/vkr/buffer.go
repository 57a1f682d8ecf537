package vkr

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/vkmodel/internal/mesh"
)

// Buffer is a VkBuffer with its bound memory.
type Buffer struct {
	device vulkan.Device
	buffer vulkan.Buffer
	memory vulkan.DeviceMemory
	size   vulkan.DeviceSize
}

// GetBuffer returns the raw buffer handle.
func (b *Buffer) GetBuffer() vulkan.Buffer { return b.buffer }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() vulkan.DeviceSize { return b.size }

// Write copies data into a host-visible buffer.
func (b *Buffer) Write(data []byte) error {
	if vulkan.DeviceSize(len(data)) > b.size {
		return errors.Errorf("write of %d bytes exceeds buffer size %d", len(data), b.size)
	}
	var ptr unsafe.Pointer
	if err := check(vulkan.MapMemory(b.device, b.memory, 0, vulkan.DeviceSize(len(data)), 0, &ptr), "map buffer memory"); err != nil {
		return err
	}
	vulkan.Memcopy(ptr, data)
	vulkan.UnmapMemory(b.device, b.memory)
	return nil
}

// Destroy releases the buffer and its memory.
func (b *Buffer) Destroy() {
	if b == nil {
		return
	}
	if b.buffer != vulkan.Buffer(vulkan.NullHandle) {
		vulkan.DestroyBuffer(b.device, b.buffer, nil)
		b.buffer = vulkan.Buffer(vulkan.NullHandle)
	}
	if b.memory != vulkan.DeviceMemory(vulkan.NullHandle) {
		vulkan.FreeMemory(b.device, b.memory, nil)
		b.memory = vulkan.DeviceMemory(vulkan.NullHandle)
	}
}

func (d *Device) createBuffer(size vulkan.DeviceSize, usage vulkan.BufferUsageFlags, properties vulkan.MemoryPropertyFlagBits) (*Buffer, error) {
	bufferInfo := vulkan.BufferCreateInfo{
		SType:       vulkan.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vulkan.SharingModeExclusive,
	}
	b := &Buffer{device: d.device, size: size}
	if err := check(vulkan.CreateBuffer(d.device, &bufferInfo, nil, &b.buffer), "create buffer"); err != nil {
		return nil, err
	}

	var memReq vulkan.MemoryRequirements
	vulkan.GetBufferMemoryRequirements(d.device, b.buffer, &memReq)
	memReq.Deref()
	memoryType, err := d.findMemoryType(memReq.MemoryTypeBits, properties)
	if err != nil {
		b.Destroy()
		return nil, errors.Wrap(err, "buffer memory")
	}
	allocInfo := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memoryType,
	}
	if err := check(vulkan.AllocateMemory(d.device, &allocInfo, nil, &b.memory), "allocate buffer memory"); err != nil {
		b.Destroy()
		return nil, err
	}
	if err := check(vulkan.BindBufferMemory(d.device, b.buffer, b.memory, 0), "bind buffer memory"); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// uploadBuffer copies data through a staging buffer into device-local memory.
func (r *Renderer) uploadBuffer(data []byte, usage vulkan.BufferUsageFlagBits) (*Buffer, error) {
	if len(data) == 0 {
		return nil, errors.New("upload of empty buffer")
	}
	size := vulkan.DeviceSize(len(data))
	staging, err := r.dev.createBuffer(size,
		vulkan.BufferUsageFlags(vulkan.BufferUsageTransferSrcBit),
		vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, errors.Wrap(err, "create staging buffer")
	}
	defer staging.Destroy()
	if err := staging.Write(data); err != nil {
		return nil, err
	}

	buf, err := r.dev.createBuffer(size,
		vulkan.BufferUsageFlags(vulkan.BufferUsageTransferDstBit|usage),
		vulkan.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	if err := r.copyBuffer(staging, buf, size); err != nil {
		buf.Destroy()
		return nil, err
	}
	return buf, nil
}

func (r *Renderer) copyBuffer(src, dst *Buffer, size vulkan.DeviceSize) error {
	return r.singleTimeCommands(func(cb vulkan.CommandBuffer) {
		region := vulkan.BufferCopy{Size: size}
		vulkan.CmdCopyBuffer(cb, src.buffer, dst.buffer, 1, []vulkan.BufferCopy{region})
	})
}

func verticesToBytes(verts []mesh.Vertex) []byte {
	if len(verts) == 0 {
		return nil
	}
	size := len(verts) * int(unsafe.Sizeof(mesh.Vertex{}))
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&verts[0])), size))
	return out
}

func indicesToBytes(idxs []uint32) []byte {
	if len(idxs) == 0 {
		return nil
	}
	size := len(idxs) * 4
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&idxs[0])), size))
	return out
}
