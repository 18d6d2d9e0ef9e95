package vulkan

import (
	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/internal/logging"
	vk "github.com/vulkan-go/vulkan"
)

// accessMask translates access flags and infers the pipeline stages they
// happen in.
func accessMask(access backend.AccessFlags) (vk.AccessFlags, vk.PipelineStageFlags) {
	var mask vk.AccessFlagBits
	var stages vk.PipelineStageFlagBits
	if access&backend.AccessKernelRead != 0 {
		mask |= vk.AccessShaderReadBit
		stages |= vk.PipelineStageComputeShaderBit
	}
	if access&backend.AccessKernelWrite != 0 {
		mask |= vk.AccessShaderWriteBit
		stages |= vk.PipelineStageComputeShaderBit
	}
	if access&backend.AccessTransferRead != 0 {
		mask |= vk.AccessTransferReadBit
		stages |= vk.PipelineStageTransferBit
	}
	if access&backend.AccessTransferWrite != 0 {
		mask |= vk.AccessTransferWriteBit
		stages |= vk.PipelineStageTransferBit
	}
	if access&backend.AccessHostRead != 0 {
		mask |= vk.AccessHostReadBit
		stages |= vk.PipelineStageHostBit
	}
	if access&backend.AccessHostWrite != 0 {
		mask |= vk.AccessHostWriteBit
		stages |= vk.PipelineStageHostBit
	}
	return vk.AccessFlags(mask), vk.PipelineStageFlags(stages)
}

// barrierStages returns the source and destination stage masks of a barrier.
// An empty side waits on the top or bottom of the pipe.
func barrierStages(desc backend.MemoryBarrierDesc) (src, dst vk.PipelineStageFlags) {
	_, src = accessMask(desc.SourceAccess)
	_, dst = accessMask(desc.DestAccess)
	if src == 0 {
		src = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
	if dst == 0 {
		dst = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	return src, dst
}

// ownershipTransfer resolves the family indices of a queue ownership
// transfer. Both are ignored unless the kinds are set and differ.
func ownershipTransfer(desc backend.MemoryBarrierDesc, familyIndex func(backend.HardwareQueueKindFlags) uint32) (src, dst uint32) {
	if desc.SourceQueueKind == backend.QueueNone || desc.DestQueueKind == backend.QueueNone ||
		desc.SourceQueueKind == desc.DestQueueKind {
		return queueFamilyIgnored, queueFamilyIgnored
	}
	src, dst = familyIndex(desc.SourceQueueKind), familyIndex(desc.DestQueueKind)
	if src == dst {
		return queueFamilyIgnored, queueFamilyIgnored
	}
	return src, dst
}

// CommandList records into one primary command buffer allocated from the pool
// of the queue family matching its queue kind.
type CommandList struct {
	backend.CommandListBase
	native vk.CommandBuffer
	family *queueFamily
}

func (c *CommandList) Init(desc backend.CommandListDesc) error {
	c.Reset()
	c.InitBase(desc.Name, desc)
	fence, err := c.create(desc)
	if err != nil {
		logging.For("vulkan").WithError(err).WithField("list", desc.Name).Error("couldn't initialize command list")
		return c.FinishInit(err)
	}
	c.InitCommandList(desc, fence, nativeRecorder{list: c})
	return c.FinishInit(nil)
}

func (c *CommandList) create(desc backend.CommandListDesc) (backend.Fence, error) {
	device := native(c.Device())
	if device == nil || !device.initialized() {
		return nil, notInitialized("CommandList.Init")
	}
	family, err := device.familyFor(desc.QueueKind)
	if err != nil {
		return nil, err
	}

	fence, err := device.CreateFence()
	if err != nil {
		return nil, err
	}
	if err := fence.Init(backend.FenceDesc{Name: "Command list wait fence"}); err != nil {
		fence.Release()
		return nil, err
	}

	cmds := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(device.handle, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        family.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmds)
	if isError(ret) {
		fence.Release()
		return nil, newError("vkAllocateCommandBuffers", ret)
	}
	c.native = cmds[0]
	c.family = family
	return fence, nil
}

// Submit resets the fence and submits the list to its queue.
func (c *CommandList) Submit() error {
	if err := c.PrepareSubmit(); err != nil {
		return err
	}
	fence := c.Fence().(*Fence)
	fence.ResetState()
	ret := vk.QueueSubmit(c.family.queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{c.native},
	}}, fence.native)
	if isError(ret) {
		return newError("vkQueueSubmit", ret)
	}
	c.MarkPending()
	return nil
}

func (c *CommandList) Reset() {
	if c.native != nil {
		device := native(c.Device())
		vk.FreeCommandBuffers(device.handle, c.family.pool, 1, []vk.CommandBuffer{c.native})
		c.native = nil
	}
	c.family = nil
	if fence := c.ResetCommandList(); fence != nil {
		fence.Release()
	}
}

func (c *CommandList) Destroy() {
	c.Reset()
}

// nativeRecorder implements backend.CommandListBackend on the command buffer.
type nativeRecorder struct {
	list *CommandList
}

func (r nativeRecorder) BeginRecording() error {
	var flags vk.CommandBufferUsageFlags
	if r.list.Desc().OneTimeSubmit() {
		flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	ret := vk.BeginCommandBuffer(r.list.native, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	})
	return newError("vkBeginCommandBuffer", ret)
}

func (r nativeRecorder) EndRecording() error {
	return newError("vkEndCommandBuffer", vk.EndCommandBuffer(r.list.native))
}

func (r nativeRecorder) ResetRecording() error {
	return newError("vkResetCommandBuffer", vk.ResetCommandBuffer(r.list.native, 0))
}

func (r nativeRecorder) RecordMemoryBarrier(buffer backend.Buffer, desc backend.MemoryBarrierDesc) {
	b, ok := buffer.(*Buffer)
	if !backend.Assert(ok, "memory barrier on a buffer from another backend") {
		return
	}
	srcAccess, _ := accessMask(desc.SourceAccess)
	dstAccess, _ := accessMask(desc.DestAccess)
	srcStage, dstStage := barrierStages(desc)
	srcFamily, dstFamily := ownershipTransfer(desc, native(r.list.Device()).familyIndex)

	vk.CmdPipelineBarrier(r.list.native, srcStage, dstStage, 0, 0, nil, 1, []vk.BufferMemoryBarrier{{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SrcQueueFamilyIndex: srcFamily,
		DstQueueFamilyIndex: dstFamily,
		Buffer:              b.native,
		Offset:              0,
		Size:                vk.DeviceSize(wholeSize),
	}}, 0, nil)
}

func (r nativeRecorder) RecordCopy(source, dest backend.Buffer, region backend.BufferCopyRegion) {
	src, ok := source.(*Buffer)
	dst, ok2 := dest.(*Buffer)
	if !backend.Assert(ok && ok2, "copy between buffers from another backend") {
		return
	}
	vk.CmdCopyBuffer(r.list.native, src.native, dst.native, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(region.SourceOffset),
		DstOffset: vk.DeviceSize(region.DestOffset),
		Size:      vk.DeviceSize(region.Size),
	}})
}

func (r nativeRecorder) RecordDispatch(kernel backend.Kernel, x, y, z uint32) {
	k, ok := kernel.(*Kernel)
	if !backend.Assert(ok && k.Initialized(), "dispatch of an uninitialized kernel") {
		return
	}
	binding := k.binding.Get().(*ResourceBinding)
	vk.CmdBindPipeline(r.list.native, vk.PipelineBindPointCompute, k.pipeline)
	vk.CmdBindDescriptorSets(r.list.native, vk.PipelineBindPointCompute, binding.pipelineLayout,
		0, 1, []vk.DescriptorSet{binding.set}, 0, nil)
	vk.CmdDispatch(r.list.native, x, y, z)
}
