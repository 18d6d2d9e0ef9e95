package vulkan

import (
	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/compiler"
	"github.com/andewx/dieselcompute/internal/logging"
	"github.com/andewx/dieselcompute/memory"
	vk "github.com/vulkan-go/vulkan"
)

// Kernel is a compute pipeline built from SPIR-V bytecode.
type Kernel struct {
	backend.DeviceObjectBase[backend.KernelDesc]
	cache    vk.PipelineCache
	module   vk.ShaderModule
	pipeline vk.Pipeline
	binding  memory.Ptr[backend.ResourceBinding]
}

func (k *Kernel) Init(desc backend.KernelDesc) error {
	k.Reset()
	if desc.EntryPoint == "" {
		desc.EntryPoint = backend.DefaultEntryPoint
	}
	desc.Bytecode = append([]byte(nil), desc.Bytecode...)
	k.InitBase(desc.Name, desc)
	err := k.create(desc)
	if err != nil {
		logging.For("vulkan").WithError(err).WithField("kernel", desc.Name).Error("couldn't create kernel")
		k.Reset()
		k.InitBase(desc.Name, desc)
	}
	return k.FinishInit(err)
}

func (k *Kernel) create(desc backend.KernelDesc) error {
	const op = "Kernel.Init"
	device := native(k.Device())
	if device == nil || !device.initialized() {
		return notInitialized(op)
	}
	if !compiler.IsSPIRV(desc.Bytecode) {
		return backend.Errorf(backend.InvalidArguments, op, "kernel %q bytecode is not SPIR-V", desc.Name)
	}
	binding, ok := desc.ResourceBinding.(*ResourceBinding)
	if !ok || !binding.Initialized() {
		return backend.Errorf(backend.InvalidArguments, op, "kernel %q needs an initialized resource binding", desc.Name)
	}
	k.binding = memory.NewPtr[backend.ResourceBinding](binding)

	var cache vk.PipelineCache
	ret := vk.CreatePipelineCache(device.handle, &vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}, nil, &cache)
	if isError(ret) {
		return newError("vkCreatePipelineCache", ret)
	}
	k.cache = cache

	var module vk.ShaderModule
	ret = vk.CreateShaderModule(device.handle, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(desc.Bytecode)),
		PCode:    compiler.Words(desc.Bytecode),
	}, nil, &module)
	if isError(ret) {
		return newError("vkCreateShaderModule", ret)
	}
	k.module = module

	pipelines := make([]vk.Pipeline, 1)
	ret = vk.CreateComputePipelines(device.handle, cache, 1, []vk.ComputePipelineCreateInfo{{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: module,
			PName:  safeString(desc.EntryPoint),
		},
		Layout: binding.pipelineLayout,
	}}, nil, pipelines)
	if isError(ret) {
		return newError("vkCreateComputePipelines", ret)
	}
	k.pipeline = pipelines[0]
	return nil
}

func (k *Kernel) Reset() {
	if device := native(k.Device()); device != nil && device.initialized() {
		if !isNull(k.pipeline) {
			vk.DestroyPipeline(device.handle, k.pipeline, nil)
		}
		if !isNull(k.module) {
			vk.DestroyShaderModule(device.handle, k.module, nil)
		}
		if !isNull(k.cache) {
			vk.DestroyPipelineCache(device.handle, k.cache, nil)
		}
	}
	k.pipeline = vk.NullPipeline
	k.module = vk.NullShaderModule
	k.cache = nil
	k.binding.Reset()
	k.ResetBase()
}

func (k *Kernel) Destroy() {
	k.Reset()
}
