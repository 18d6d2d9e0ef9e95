package vulkan

import (
	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/internal/logging"
	"github.com/andewx/dieselcompute/memory"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// ComputeDevice is a logical device with one queue per distinct queue family.
type ComputeDevice struct {
	memory.ObjectBase
	factory     memory.Ptr[*DeviceFactory]
	desc        backend.ComputeDeviceDesc
	adapter     backend.AdapterInfo
	gpu         vk.PhysicalDevice
	handle      vk.Device
	families    []*queueFamily
	memoryTypes []vk.MemoryPropertyFlags
	descriptors *descriptorAllocator
	log         *logrus.Entry
}

func (d *ComputeDevice) Desc() backend.ComputeDeviceDesc {
	return d.desc
}

// Adapter describes the adapter the device was created on.
func (d *ComputeDevice) Adapter() backend.AdapterInfo {
	return d.adapter
}

func (d *ComputeDevice) Init(desc backend.ComputeDeviceDesc) error {
	d.Reset()
	factory := d.factory.Get()
	if d.factory.IsNil() || factory.instance == nil {
		return backend.Errorf(backend.InvalidOperation, "ComputeDevice.Init", "device was not created by an initialized factory")
	}
	a, ok := factory.adapter(desc.AdapterID)
	if !ok {
		return backend.Errorf(backend.InvalidArguments, "ComputeDevice.Init", "unknown adapter id %d", desc.AdapterID)
	}
	d.desc = desc
	d.adapter = a.info
	d.gpu = a.gpu
	d.log = logging.For("vulkan").WithField("adapter", a.info.Name)

	if err := d.createDevice(); err != nil {
		d.log.WithError(err).Error("couldn't create Vulkan device")
		d.Reset()
		return err
	}
	return nil
}

func (d *ComputeDevice) createDevice() error {
	d.families = dedupeQueueFamilies(queueFamilyKinds(d.gpu))
	if len(d.families) == 0 {
		return backend.Errorf(backend.Fail, "ComputeDevice.Init", "adapter %q has no usable queue families", d.adapter.Name)
	}

	queueInfos := queueCreateInfos(d.families)
	var handle vk.Device
	ret := vk.CreateDevice(d.gpu, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: uint32(len(queueInfos)),
		PQueueCreateInfos:    queueInfos,
	}, nil, &handle)
	if isError(ret) {
		return newError("vkCreateDevice", ret)
	}
	d.handle = handle

	for _, f := range d.families {
		var queue vk.Queue
		vk.GetDeviceQueue(handle, f.index, 0, &queue)
		f.queue = queue
		pool, err := createCommandPool(handle, f.index)
		if err != nil {
			return err
		}
		f.pool = pool
		d.log.WithFields(logrus.Fields{
			"family": f.index,
			"kind":   f.flags.String(),
		}).Debug("created device queue")
	}

	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.gpu, &props)
	props.Deref()
	d.memoryTypes = make([]vk.MemoryPropertyFlags, props.MemoryTypeCount)
	for i := range d.memoryTypes {
		props.MemoryTypes[i].Deref()
		d.memoryTypes[i] = props.MemoryTypes[i].PropertyFlags
	}

	d.descriptors = newDescriptorAllocator(nativePoolDriver{device: handle}, defaultDescriptorRatios)
	return nil
}

// findMemoryType returns the first type allowed by typeBits whose properties
// contain flags.
func findMemoryType(types []vk.MemoryPropertyFlags, typeBits uint32, flags vk.MemoryPropertyFlags) (uint32, bool) {
	for i, props := range types {
		if typeBits&(1<<uint(i)) != 0 && props&flags == flags {
			return uint32(i), true
		}
	}
	return 0, false
}

// FindMemoryType looks up a memory type of the adapter.
func (d *ComputeDevice) FindMemoryType(typeBits uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	index, ok := findMemoryType(d.memoryTypes, typeBits, flags)
	if !ok {
		return 0, backend.Errorf(backend.InvalidArguments, "ComputeDevice.FindMemoryType",
			"no memory type with typeBits=%#x and properties=%#x", typeBits, uint32(flags))
	}
	return index, nil
}

// familyFor resolves the queue family serving kind.
func (d *ComputeDevice) familyFor(kind backend.HardwareQueueKindFlags) (*queueFamily, error) {
	f, ok := selectQueueFamily(d.families, kind)
	if !ok {
		return nil, backend.Errorf(backend.InvalidArguments, "ComputeDevice", "no queue family supports %s", kind)
	}
	return f, nil
}

// familyIndex returns the family index for a barrier queue kind.
func (d *ComputeDevice) familyIndex(kind backend.HardwareQueueKindFlags) uint32 {
	if kind == backend.QueueNone {
		return queueFamilyIgnored
	}
	f, ok := selectQueueFamily(d.families, kind)
	if !ok {
		return queueFamilyIgnored
	}
	return f.index
}

func (d *ComputeDevice) initialized() bool {
	return d.handle != nil
}

// newObject allocates a device object of type T bound to d.
func newObject[T any, PT interface {
	*T
	backendObject
}](d *ComputeDevice) (PT, error) {
	if !d.initialized() {
		return nil, notInitialized("ComputeDevice.Create")
	}
	obj := memory.Allocate[T, PT]()
	obj.Bind(d)
	return obj, nil
}

type backendObject interface {
	memory.Object
	Bind(device backend.ComputeDevice)
}

func (d *ComputeDevice) CreateBuffer() (backend.Buffer, error) {
	obj, err := newObject[Buffer](d)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *ComputeDevice) CreateMemory() (backend.DeviceMemory, error) {
	obj, err := newObject[DeviceMemory](d)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *ComputeDevice) CreateFence() (backend.Fence, error) {
	obj, err := newObject[Fence](d)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *ComputeDevice) CreateCommandList() (backend.CommandList, error) {
	obj, err := newObject[CommandList](d)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *ComputeDevice) CreateResourceBinding() (backend.ResourceBinding, error) {
	obj, err := newObject[ResourceBinding](d)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *ComputeDevice) CreateKernel() (backend.Kernel, error) {
	obj, err := newObject[Kernel](d)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// WaitIdle blocks until every queue of the device is idle.
func (d *ComputeDevice) WaitIdle() error {
	if !d.initialized() {
		return notInitialized("ComputeDevice.WaitIdle")
	}
	return newError("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.handle))
}

// Reset destroys the logical device. Objects created from it must be released
// first.
func (d *ComputeDevice) Reset() {
	if d.handle != nil {
		vk.DeviceWaitIdle(d.handle)
		if d.descriptors != nil {
			d.descriptors.reset()
		}
		destroyCommandPools(d.handle, d.families)
		vk.DestroyDevice(d.handle, nil)
		d.handle = nil
	}
	d.descriptors = nil
	d.families = nil
	d.memoryTypes = nil
	d.gpu = nil
	d.desc = backend.ComputeDeviceDesc{}
	d.adapter = backend.AdapterInfo{}
}

func (d *ComputeDevice) Destroy() {
	d.Reset()
	d.factory.Reset()
}

// native returns the Vulkan device behind a backend.ComputeDevice.
func native(device backend.ComputeDevice) *ComputeDevice {
	d, _ := device.(*ComputeDevice)
	return d
}
