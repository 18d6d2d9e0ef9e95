package vulkan

import (
	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/memory"
	vk "github.com/vulkan-go/vulkan"
)

// descriptorType maps a kernel resource kind to its descriptor type. Read-only
// buffers are bound as storage buffers, matching what HLSL and WGSL compilers
// emit for them.
func descriptorType(kind backend.KernelResourceKind) (vk.DescriptorType, bool) {
	switch kind {
	case backend.ResourceBuffer, backend.ResourceRWBuffer:
		return vk.DescriptorTypeStorageBuffer, true
	case backend.ResourceConstantBuffer:
		return vk.DescriptorTypeUniformBuffer, true
	case backend.ResourceSampledTexture:
		return vk.DescriptorTypeSampledImage, true
	case backend.ResourceRWTexture:
		return vk.DescriptorTypeStorageImage, true
	case backend.ResourceSampler:
		return vk.DescriptorTypeSampler, true
	}
	return 0, false
}

// layoutBindings validates a resource layout and builds its set layout
// bindings.
func layoutBindings(layout []backend.KernelResourceDesc) ([]vk.DescriptorSetLayoutBinding, error) {
	const op = "ResourceBinding.Init"
	seen := make(map[int]bool, len(layout))
	bindings := make([]vk.DescriptorSetLayoutBinding, 0, len(layout))
	for _, r := range layout {
		if r.BindingIndex < 0 {
			return nil, backend.Errorf(backend.InvalidArguments, op, "negative binding index %d", r.BindingIndex)
		}
		if seen[r.BindingIndex] {
			return nil, backend.Errorf(backend.InvalidArguments, op, "binding index %d declared twice", r.BindingIndex)
		}
		seen[r.BindingIndex] = true
		kind, ok := descriptorType(r.Kind)
		if !ok {
			return nil, backend.Errorf(backend.InvalidArguments, op, "unknown resource kind %s", r.Kind)
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(r.BindingIndex),
			DescriptorType:  kind,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		})
	}
	return bindings, nil
}

// ResourceBinding is a descriptor set together with the pipeline layout that
// kernels using it are created with.
type ResourceBinding struct {
	backend.DeviceObjectBase[backend.ResourceBindingDesc]
	setLayout      vk.DescriptorSetLayout
	pipelineLayout vk.PipelineLayout
	set            vk.DescriptorSet
	buffers        map[int]memory.Ptr[backend.Buffer]
}

func (r *ResourceBinding) Init(desc backend.ResourceBindingDesc) error {
	r.Reset()
	desc.Layout = append([]backend.KernelResourceDesc(nil), desc.Layout...)
	r.InitBase(desc.Name, desc)
	err := r.create(desc)
	if err != nil {
		r.Reset()
		r.InitBase(desc.Name, desc)
	}
	return r.FinishInit(err)
}

func (r *ResourceBinding) create(desc backend.ResourceBindingDesc) error {
	device := native(r.Device())
	if device == nil || !device.initialized() {
		return notInitialized("ResourceBinding.Init")
	}
	bindings, err := layoutBindings(desc.Layout)
	if err != nil {
		return err
	}

	var setLayout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(device.handle, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &setLayout)
	if isError(ret) {
		return newError("vkCreateDescriptorSetLayout", ret)
	}
	r.setLayout = setLayout

	set, err := device.descriptors.allocate(setLayout)
	if err != nil {
		return err
	}
	r.set = set

	var pipelineLayout vk.PipelineLayout
	ret = vk.CreatePipelineLayout(device.handle, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{setLayout},
	}, nil, &pipelineLayout)
	if isError(ret) {
		return newError("vkCreatePipelineLayout", ret)
	}
	r.pipelineLayout = pipelineLayout
	r.buffers = make(map[int]memory.Ptr[backend.Buffer])
	return nil
}

// SetVariable binds the whole of buffer to the slot declared at bindingIndex.
func (r *ResourceBinding) SetVariable(bindingIndex int, buffer backend.Buffer) error {
	const op = "ResourceBinding.SetVariable"
	if !r.Initialized() {
		return notInitialized(op)
	}
	slot, ok := r.Desc().Slot(bindingIndex)
	if !ok {
		return backend.Errorf(backend.InvalidArguments, op, "no variable at binding index %d in %q", bindingIndex, r.DebugName())
	}
	if !slot.Kind.IsBuffer() {
		return backend.Errorf(backend.InvalidArguments, op, "variable at binding index %d in %q is a %s, not a buffer",
			bindingIndex, r.DebugName(), slot.Kind)
	}
	b, ok := buffer.(*Buffer)
	if !ok || !b.Initialized() {
		return backend.Errorf(backend.InvalidArguments, op, "buffer for binding index %d is not an initialized Vulkan buffer", bindingIndex)
	}

	kind, _ := descriptorType(slot.Kind)
	vk.UpdateDescriptorSets(native(r.Device()).handle, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          r.set,
		DstBinding:      uint32(bindingIndex),
		DescriptorCount: 1,
		DescriptorType:  kind,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: b.native,
			Offset: 0,
			Range:  vk.DeviceSize(wholeSize),
		}},
	}}, 0, nil)

	old := r.buffers[bindingIndex]
	r.buffers[bindingIndex] = memory.NewPtr[backend.Buffer](b)
	old.Reset()
	return nil
}

// Reset destroys the layouts. The descriptor set goes back to its pool when the
// device recycles or destroys its pools.
func (r *ResourceBinding) Reset() {
	device := native(r.Device())
	if !isNull(r.pipelineLayout) {
		vk.DestroyPipelineLayout(device.handle, r.pipelineLayout, nil)
		r.pipelineLayout = vk.NullPipelineLayout
	}
	if !isNull(r.setLayout) {
		vk.DestroyDescriptorSetLayout(device.handle, r.setLayout, nil)
		r.setLayout = nil
	}
	r.set = nil
	for i, b := range r.buffers {
		b.Reset()
		delete(r.buffers, i)
	}
	r.ResetBase()
}

func (r *ResourceBinding) Destroy() {
	r.Reset()
}
