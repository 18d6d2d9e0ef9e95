package vulkan

import vk "github.com/vulkan-go/vulkan"

// createCommandPool creates the pool command lists of one family allocate from.
// Command buffers can be reset individually.
func createCommandPool(device vk.Device, familyIndex uint32) (vk.CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: familyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if isError(ret) {
		return pool, newError("vkCreateCommandPool", ret)
	}
	return pool, nil
}

func destroyCommandPools(device vk.Device, families []*queueFamily) {
	for _, f := range families {
		if !isNull(f.pool) {
			vk.DestroyCommandPool(device, f.pool, nil)
			f.pool = nil
		}
	}
}
