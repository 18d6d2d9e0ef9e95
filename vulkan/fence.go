package vulkan

import (
	"math"
	"time"

	"github.com/andewx/dieselcompute/backend"
	vk "github.com/vulkan-go/vulkan"
)

type Fence struct {
	backend.DeviceObjectBase[backend.FenceDesc]
	native vk.Fence
}

func (f *Fence) Init(desc backend.FenceDesc) error {
	f.Reset()
	f.InitBase(desc.Name, desc)

	device := native(f.Device())
	if device == nil || !device.initialized() {
		return f.FinishInit(notInitialized("Fence.Init"))
	}
	var flags vk.FenceCreateFlags
	if desc.InitialState == backend.FenceSignaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	ret := vk.CreateFence(device.handle, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: flags,
	}, nil, &fence)
	if isError(ret) {
		return f.FinishInit(newError("vkCreateFence", ret))
	}
	f.native = fence
	return f.FinishInit(nil)
}

func (f *Fence) State() backend.FenceState {
	if !f.Initialized() {
		return backend.FenceReset
	}
	if vk.GetFenceStatus(native(f.Device()).handle, f.native) == vk.Success {
		return backend.FenceSignaled
	}
	return backend.FenceReset
}

func (f *Fence) ResetState() {
	if !f.Initialized() {
		return
	}
	vk.ResetFences(native(f.Device()).handle, 1, []vk.Fence{f.native})
}

// SignalOnCpu submits an empty batch that signals the fence on a compute queue
// and waits for it to complete.
func (f *Fence) SignalOnCpu() error {
	const op = "Fence.SignalOnCpu"
	if !f.Initialized() {
		return notInitialized(op)
	}
	device := native(f.Device())
	family, err := device.familyFor(backend.QueueCompute)
	if err != nil {
		return err
	}
	ret := vk.QueueSubmit(family.queue, 1, []vk.SubmitInfo{{
		SType: vk.StructureTypeSubmitInfo,
	}}, f.native)
	if isError(ret) {
		return newError("vkQueueSubmit", ret)
	}
	return f.Wait()
}

func (f *Fence) Wait() error {
	return f.wait(math.MaxUint64)
}

// WaitOnCpu returns backend.Timeout when the fence is still unsignaled after
// timeout.
func (f *Fence) WaitOnCpu(timeout time.Duration) error {
	if timeout < 0 {
		timeout = 0
	}
	return f.wait(uint64(timeout.Nanoseconds()))
}

func (f *Fence) wait(nanoseconds uint64) error {
	if !f.Initialized() {
		return notInitialized("Fence.Wait")
	}
	ret := vk.WaitForFences(native(f.Device()).handle, 1, []vk.Fence{f.native}, vk.True, nanoseconds)
	switch ret {
	case vk.Success:
		return nil
	case vk.Timeout:
		return backend.Errorf(backend.Timeout, "Fence.Wait", "fence %q was not signaled in time", f.DebugName())
	}
	return newError("vkWaitForFences", ret)
}

func (f *Fence) Reset() {
	if !isNull(f.native) {
		vk.DestroyFence(native(f.Device()).handle, f.native, nil)
		f.native = nil
	}
	f.ResetBase()
}

func (f *Fence) Destroy() {
	f.Reset()
}
