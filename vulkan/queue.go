package vulkan

import (
	"math/bits"

	"github.com/andewx/dieselcompute/backend"
	vk "github.com/vulkan-go/vulkan"
)

// queueFamily is one distinct queue family of a device, with the single queue
// and command pool created for it.
type queueFamily struct {
	index uint32
	flags backend.HardwareQueueKindFlags
	queue vk.Queue
	pool  vk.CommandPool
}

// hardwareQueueKind converts native queue flags. Graphics and compute families
// always accept transfer work even when they do not advertise it.
func hardwareQueueKind(flags vk.QueueFlags) backend.HardwareQueueKindFlags {
	var kind backend.HardwareQueueKindFlags
	if flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
		kind |= backend.QueueGraphicsBit | backend.QueueTransferBit
	}
	if flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
		kind |= backend.QueueComputeBit | backend.QueueTransferBit
	}
	if flags&vk.QueueFlags(vk.QueueTransferBit) != 0 {
		kind |= backend.QueueTransferBit
	}
	return kind
}

// queueFamilyKinds lists the queue kinds of every family of gpu.
func queueFamilyKinds(gpu vk.PhysicalDevice) []backend.HardwareQueueKindFlags {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)

	kinds := make([]backend.HardwareQueueKindFlags, count)
	for i := range props {
		props[i].Deref()
		if props[i].QueueCount == 0 {
			continue
		}
		kinds[i] = hardwareQueueKind(props[i].QueueFlags)
	}
	return kinds
}

// dedupeQueueFamilies keeps the first family for every distinct combination
// of queue kinds.
func dedupeQueueFamilies(kinds []backend.HardwareQueueKindFlags) []*queueFamily {
	var families []*queueFamily
	seen := make(map[backend.HardwareQueueKindFlags]bool)
	for i, kind := range kinds {
		if kind == backend.QueueNone || seen[kind] {
			continue
		}
		seen[kind] = true
		families = append(families, &queueFamily{index: uint32(i), flags: kind})
	}
	return families
}

// selectQueueFamily returns the family supporting every bit of kind with the
// fewest additional capabilities. Ties go to the lower family index.
func selectQueueFamily(families []*queueFamily, kind backend.HardwareQueueKindFlags) (*queueFamily, bool) {
	if kind == backend.QueueNone {
		kind = backend.QueueCompute
	}
	var best *queueFamily
	bestExtra := 33
	for _, f := range families {
		if !f.flags.Has(kind) {
			continue
		}
		extra := bits.OnesCount32(uint32(f.flags &^ kind))
		if extra < bestExtra || (extra == bestExtra && f.index < best.index) {
			best, bestExtra = f, extra
		}
	}
	return best, best != nil
}

func queueCreateInfos(families []*queueFamily) []vk.DeviceQueueCreateInfo {
	infos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, f := range families {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f.index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}
