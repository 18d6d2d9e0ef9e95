package vulkan

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/andewx/dieselcompute/backend"
	vk "github.com/vulkan-go/vulkan"
)

// VK_ERROR_OUT_OF_POOL_MEMORY, core since 1.1.
const errorOutOfPoolMemory vk.Result = -1000069000

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// resultCode maps a native result into the common taxonomy.
func resultCode(ret vk.Result) backend.ResultCode {
	switch ret {
	case vk.Success:
		return backend.Success
	case vk.Timeout, vk.NotReady:
		return backend.Timeout
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory, vk.ErrorFragmentedPool,
		errorOutOfPoolMemory, vk.ErrorTooManyObjects:
		return backend.OutOfMemory
	}
	return backend.Fail
}

func resultName(ret vk.Result) string {
	if err := vk.Error(ret); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("VkResult(%d)", int32(ret))
}

// newError wraps a failed native result with the operation name and the call
// site. It returns nil for vk.Success.
func newError(op string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	msg := fmt.Sprintf("vulkan error: %s (%d)", resultName(ret), int32(ret))
	if pc, _, _, ok := runtime.Caller(1); ok {
		msg += " on " + newStackFrame(pc).String()
	}
	return &backend.Error{Code: resultCode(ret), Op: op, Message: msg}
}

type stackFrame struct {
	file     string
	line     int
	function string
}

func newStackFrame(pc uintptr) stackFrame {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return stackFrame{function: "unknown"}
	}
	file, line := fn.FileLine(pc)
	return stackFrame{file: file, line: line, function: fn.Name()}
}

func (f stackFrame) String() string {
	return fmt.Sprintf("%s:%d (%s)", filepath.Base(f.file), f.line, f.function)
}

func orPanic(err error) {
	if err != nil {
		panic(err)
	}
}

func checkErr(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = e
			return
		}
		*err = fmt.Errorf("%+v", v)
	}
}

var errNotInitialized = errors.New("object is not initialized")

func notInitialized(op string) error {
	return backend.Wrap(backend.InvalidOperation, op, errNotInitialized)
}
