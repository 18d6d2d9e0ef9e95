package vulkan

import (
	"sync"

	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/compiler"
	"github.com/andewx/dieselcompute/internal/logging"
	"github.com/andewx/dieselcompute/memory"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

const engineName = "dieselcompute"

var (
	loaderOnce sync.Once
	loaderErr  error
)

// loadVulkan resolves the loader entry points once per process.
func loadVulkan() error {
	loaderOnce.Do(func() {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			loaderErr = err
			return
		}
		loaderErr = vk.Init()
	})
	if loaderErr != nil {
		return backend.Wrap(backend.Fail, "vulkan.Init", loaderErr)
	}
	return nil
}

type adapter struct {
	info backend.AdapterInfo
	gpu  vk.PhysicalDevice
}

// DeviceFactory owns the Vulkan instance and the list of adapters found on it.
type DeviceFactory struct {
	memory.ObjectBase
	desc          backend.DeviceFactoryDesc
	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	adapters      []adapter
	log           *logrus.Entry
}

// NewDeviceFactory returns an uninitialized factory holding one reference.
func NewDeviceFactory() *DeviceFactory {
	return memory.Allocate[DeviceFactory]()
}

func (f *DeviceFactory) BackendKind() backend.BackendKind {
	return backend.BackendVulkan
}

func (f *DeviceFactory) Desc() backend.DeviceFactoryDesc {
	return f.desc
}

func (f *DeviceFactory) Init(desc backend.DeviceFactoryDesc) error {
	f.Reset()
	f.desc = desc
	f.log = logging.For("vulkan").WithField("application", desc.ApplicationName)

	if err := loadVulkan(); err != nil {
		return err
	}
	if err := f.createInstance(); err != nil {
		f.Reset()
		return err
	}
	if desc.EnableValidation {
		f.installDebugCallback()
	}
	if err := f.enumerateAdapters(); err != nil {
		f.Reset()
		return err
	}
	return nil
}

func (f *DeviceFactory) createInstance() error {
	layerNames, err := ValidationLayers()
	if err != nil {
		return err
	}
	extNames, err := InstanceExtensions()
	if err != nil {
		return err
	}

	layers := extensionSet{actual: layerNames}
	extensions := extensionSet{actual: extNames, wanted: []string{portabilityEnumeration}}
	if f.desc.EnableValidation {
		layers.required = append(layers.required, validationLayer)
		extensions.required = append(extensions.required, debugReportExtension)
	}
	if missing := layers.missing(); len(missing) > 0 {
		return backend.Errorf(backend.Fail, "DeviceFactory.Init", "missing instance layers %v", missing)
	}
	if missing := extensions.missing(); len(missing) > 0 {
		return backend.Errorf(backend.Fail, "DeviceFactory.Init", "missing instance extensions %v", missing)
	}

	var flags vk.InstanceCreateFlags
	if extensions.has(portabilityEnumeration) {
		flags |= enumeratePortabilityFlag
	}
	enabledLayers := layers.enabled()
	enabledExtensions := extensions.enabled()

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(f.desc.ApplicationName),
			PEngineName:        safeString(engineName),
			EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
		},
		EnabledExtensionCount:   uint32(len(enabledExtensions)),
		PpEnabledExtensionNames: safeStrings(enabledExtensions),
		EnabledLayerCount:       uint32(len(enabledLayers)),
		PpEnabledLayerNames:     safeStrings(enabledLayers),
		Flags:                   flags,
	}, nil, &instance)
	if isError(ret) {
		return newError("vkCreateInstance", ret)
	}
	f.instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return backend.Wrap(backend.Fail, "vulkan.InitInstance", err)
	}
	f.log.WithFields(logrus.Fields{
		"layers":     enabledLayers,
		"extensions": enabledExtensions,
	}).Debug("created Vulkan instance")
	return nil
}

// installDebugCallback routes validation messages to the logger. A failure
// here is logged and otherwise ignored.
func (f *DeviceFactory) installDebugCallback() {
	var callback vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(f.instance, &vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}, nil, &callback)
	if isError(ret) {
		f.log.WithError(newError("vkCreateDebugReportCallbackEXT", ret)).
			Error("couldn't create Vulkan debug report callback")
		return
	}
	f.debugCallback = callback
}

func (f *DeviceFactory) enumerateAdapters() error {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(f.instance, &count, nil)
	if isError(ret) {
		return newError("vkEnumeratePhysicalDevices", ret)
	}
	gpus := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(f.instance, &count, gpus)
	if isError(ret) {
		return newError("vkEnumeratePhysicalDevices", ret)
	}

	f.adapters = make([]adapter, 0, count)
	for i, gpu := range gpus[:count] {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		info := backend.AdapterInfo{
			ID:   i,
			Kind: adapterKind(props.DeviceType),
			Name: vk.ToString(props.DeviceName[:]),
		}
		f.adapters = append(f.adapters, adapter{info: info, gpu: gpu})
		f.log.WithField("adapter", info.String()).Debug("found adapter")
	}
	return nil
}

func adapterKind(t vk.PhysicalDeviceType) backend.AdapterKind {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return backend.AdapterIntegrated
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return backend.AdapterDiscrete
	case vk.PhysicalDeviceTypeVirtualGpu:
		return backend.AdapterVirtual
	case vk.PhysicalDeviceTypeCpu:
		return backend.AdapterCpu
	}
	return backend.AdapterNone
}

// Adapters returns a copy of the adapters found during Init.
func (f *DeviceFactory) Adapters() []backend.AdapterInfo {
	out := make([]backend.AdapterInfo, len(f.adapters))
	for i, a := range f.adapters {
		out[i] = a.info
	}
	return out
}

func (f *DeviceFactory) adapter(id int) (adapter, bool) {
	for _, a := range f.adapters {
		if a.info.ID == id {
			return a, true
		}
	}
	return adapter{}, false
}

// CreateDevice returns an uninitialized device that keeps the factory alive.
func (f *DeviceFactory) CreateDevice() (backend.ComputeDevice, error) {
	if f.instance == nil {
		return nil, notInitialized("DeviceFactory.CreateDevice")
	}
	device := memory.Allocate[ComputeDevice]()
	device.factory = memory.NewPtr(f)
	return device, nil
}

func (f *DeviceFactory) CreateKernelCompiler() (backend.KernelCompiler, error) {
	return compiler.New(), nil
}

func (f *DeviceFactory) Reset() {
	if f.instance != nil {
		if !isNull(f.debugCallback) {
			vk.DestroyDebugReportCallback(f.instance, f.debugCallback, nil)
			f.debugCallback = vk.NullDebugReportCallback
		}
		vk.DestroyInstance(f.instance, nil)
		f.instance = nil
	}
	f.adapters = nil
	f.desc = backend.DeviceFactoryDesc{}
}

func (f *DeviceFactory) Destroy() {
	f.Reset()
}
