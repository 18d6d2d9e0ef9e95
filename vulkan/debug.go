package vulkan

import (
	"unsafe"

	"github.com/andewx/dieselcompute/internal/logging"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	entry := logging.For("vulkan").WithFields(logrus.Fields{
		"layer": pLayerPrefix,
		"code":  messageCode,
	})
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		entry.Error(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		entry.Warn(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		entry.WithField("performance", true).Warn(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		entry.Debug(pMessage)
	default:
		entry.Info(pMessage)
	}
	return vk.Bool32(vk.False)
}
