package vulkan

import vk "github.com/vulkan-go/vulkan"

const (
	validationLayer          = "VK_LAYER_KHRONOS_validation"
	debugReportExtension     = "VK_EXT_debug_report"
	portabilityEnumeration   = "VK_KHR_portability_enumeration"
	enumeratePortabilityFlag = vk.InstanceCreateFlags(0x00000001)
)

// InstanceExtensions gets a list of instance extensions available on the platform.
func InstanceExtensions() (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	orPanic(newError("InstanceExtensions", ret))
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	orPanic(newError("InstanceExtensions", ret))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

// ValidationLayers gets a list of validation layers available on the platform.
func ValidationLayers() (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	orPanic(newError("ValidationLayers", ret))
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	orPanic(newError("ValidationLayers", ret))
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, err
}

// extensionSet resolves required and wanted names against what the platform
// reports.
type extensionSet struct {
	required []string
	wanted   []string
	actual   []string
}

func (e extensionSet) has(name string) bool {
	for _, act := range e.actual {
		if act == name {
			return true
		}
	}
	return false
}

// missing returns the required names the platform does not provide.
func (e extensionSet) missing() []string {
	var missing []string
	for _, req := range e.required {
		if !e.has(req) {
			missing = append(missing, req)
		}
	}
	return missing
}

// enabled returns every required name plus the wanted names that are present.
func (e extensionSet) enabled() []string {
	out := append([]string(nil), e.required...)
	for _, want := range e.wanted {
		if e.has(want) && !contains(out, want) {
			out = append(out, want)
		}
	}
	return out
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}
