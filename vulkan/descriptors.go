package vulkan

import (
	"github.com/andewx/dieselcompute/internal/logging"
	vk "github.com/vulkan-go/vulkan"
)

const initialDescriptorPoolSize = 128

// descriptorRatio is the number of descriptors of one type reserved per set
// in every pool.
type descriptorRatio struct {
	kind  vk.DescriptorType
	ratio float32
}

var defaultDescriptorRatios = []descriptorRatio{
	{vk.DescriptorTypeUniformTexelBuffer, 1},
	{vk.DescriptorTypeUniformBuffer, 2},
	{vk.DescriptorTypeStorageBuffer, 2},
	{vk.DescriptorTypeSampledImage, 1},
	{vk.DescriptorTypeStorageImage, 1},
	{vk.DescriptorTypeSampler, 1},
}

type descriptorPool struct {
	native  vk.DescriptorPool
	maxSets uint32
}

// descriptorPoolDriver performs the native pool operations for the allocator.
type descriptorPoolDriver interface {
	createPool(maxSets uint32, sizes []vk.DescriptorPoolSize) (*descriptorPool, error)
	allocateSet(pool *descriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, vk.Result)
	resetPool(pool *descriptorPool)
	destroyPool(pool *descriptorPool)
}

// descriptorAllocator hands out descriptor sets from a growing list of pools.
// Each new pool holds twice as many sets as the previous one.
type descriptorAllocator struct {
	driver   descriptorPoolDriver
	ratios   []descriptorRatio
	current  *descriptorPool
	used     []*descriptorPool
	free     []*descriptorPool
	nextSize uint32
}

func newDescriptorAllocator(driver descriptorPoolDriver, ratios []descriptorRatio) *descriptorAllocator {
	if len(ratios) == 0 {
		ratios = defaultDescriptorRatios
	}
	return &descriptorAllocator{
		driver:   driver,
		ratios:   ratios,
		nextSize: initialDescriptorPoolSize,
	}
}

func (a *descriptorAllocator) poolSizes(maxSets uint32) []vk.DescriptorPoolSize {
	sizes := make([]vk.DescriptorPoolSize, 0, len(a.ratios))
	for _, r := range a.ratios {
		count := uint32(float32(maxSets) * r.ratio)
		if count == 0 {
			continue
		}
		sizes = append(sizes, vk.DescriptorPoolSize{Type: r.kind, DescriptorCount: count})
	}
	return sizes
}

// grabPool reuses a free pool or creates the next larger one.
func (a *descriptorAllocator) grabPool() (*descriptorPool, error) {
	if n := len(a.free); n > 0 {
		pool := a.free[n-1]
		a.free = a.free[:n-1]
		return pool, nil
	}
	pool, err := a.driver.createPool(a.nextSize, a.poolSizes(a.nextSize))
	if err != nil {
		return nil, err
	}
	a.nextSize *= 2
	return pool, nil
}

func (a *descriptorAllocator) switchPool() error {
	pool, err := a.grabPool()
	if err != nil {
		return err
	}
	a.current = pool
	a.used = append(a.used, pool)
	return nil
}

// allocate returns a set with the given layout, moving to a fresh pool once if
// the current one is exhausted.
func (a *descriptorAllocator) allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	var none vk.DescriptorSet
	if a.current == nil {
		if err := a.switchPool(); err != nil {
			return none, err
		}
	}

	set, ret := a.driver.allocateSet(a.current, layout)
	if ret == vk.Success {
		return set, nil
	}
	if ret == vk.ErrorFragmentedPool || ret == errorOutOfPoolMemory {
		if err := a.switchPool(); err != nil {
			return none, err
		}
		set, ret = a.driver.allocateSet(a.current, layout)
		if ret == vk.Success {
			return set, nil
		}
	}
	err := newError("vkAllocateDescriptorSets", ret)
	logging.For("vulkan").WithError(err).Error("couldn't allocate Vulkan descriptor set")
	return none, err
}

// resetPools returns every set to its pool. Sets allocated before the call
// must not be used afterwards.
func (a *descriptorAllocator) resetPools() {
	for _, pool := range a.used {
		a.driver.resetPool(pool)
	}
	a.free = append(a.free, a.used...)
	a.used = nil
	a.current = nil
}

// reset destroys every pool.
func (a *descriptorAllocator) reset() {
	for _, pool := range a.used {
		a.driver.destroyPool(pool)
	}
	for _, pool := range a.free {
		a.driver.destroyPool(pool)
	}
	a.used, a.free, a.current = nil, nil, nil
	a.nextSize = initialDescriptorPoolSize
}

func (a *descriptorAllocator) poolCount() int {
	return len(a.used) + len(a.free)
}

// nativePoolDriver implements descriptorPoolDriver on a logical device.
type nativePoolDriver struct {
	device vk.Device
}

func (d nativePoolDriver) createPool(maxSets uint32, sizes []vk.DescriptorPoolSize) (*descriptorPool, error) {
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(d.device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &pool)
	if isError(ret) {
		return nil, newError("vkCreateDescriptorPool", ret)
	}
	return &descriptorPool{native: pool, maxSets: maxSets}, nil
}

func (d nativePoolDriver) allocateSet(pool *descriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, vk.Result) {
	var set vk.DescriptorSet
	ret := vk.AllocateDescriptorSets(d.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool.native,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}, &set)
	return set, ret
}

func (d nativePoolDriver) resetPool(pool *descriptorPool) {
	vk.ResetDescriptorPool(d.device, pool.native, 0)
}

func (d nativePoolDriver) destroyPool(pool *descriptorPool) {
	vk.DestroyDescriptorPool(d.device, pool.native, nil)
}

// ResetDescriptorPools recycles every descriptor set allocated by the device.
// Resource bindings initialized before the call must be initialized again.
func (d *ComputeDevice) ResetDescriptorPools() {
	if d.descriptors != nil {
		d.descriptors.resetPools()
	}
}
