// Package dieselcompute runs compute kernels on GPUs through a
// backend-neutral device API. Backends are chosen at runtime with
// CreateDeviceFactory; Vulkan is the only one implemented.
package dieselcompute

import (
	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/internal/logging"
	"github.com/andewx/dieselcompute/vulkan"
	"github.com/sirupsen/logrus"
)

// CreateDeviceFactory returns an uninitialized factory for the given backend.
// The caller owns one reference to it.
func CreateDeviceFactory(kind backend.BackendKind) (backend.DeviceFactory, error) {
	switch kind {
	case backend.BackendVulkan:
		return vulkan.NewDeviceFactory(), nil
	case backend.BackendCpu:
		return nil, backend.Errorf(backend.NotImplemented, "CreateDeviceFactory", "the %s backend is not implemented", kind)
	}
	return nil, backend.Errorf(backend.InvalidArguments, "CreateDeviceFactory", "unknown backend %s", kind)
}

// SetLogger routes the library's log output to l. A nil logger silences it,
// which is the default.
func SetLogger(l *logrus.Logger) {
	logging.SetLogger(l)
}

// SelectAdapter picks the first adapter of the preferred kind, then the first
// discrete adapter, then the first adapter. It reports false for an empty list.
func SelectAdapter(adapters []backend.AdapterInfo, preferred backend.AdapterKind) (backend.AdapterInfo, bool) {
	if len(adapters) == 0 {
		return backend.AdapterInfo{}, false
	}
	if preferred != backend.AdapterNone {
		for _, a := range adapters {
			if a.Kind == preferred {
				return a, true
			}
		}
	}
	for _, a := range adapters {
		if a.Kind == backend.AdapterDiscrete {
			return a, true
		}
	}
	return adapters[0], true
}
