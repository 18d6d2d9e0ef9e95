// Package transform is the array transformation sample: it fills a buffer with
// 0..N-1, runs a Fibonacci kernel over it on the GPU and reads the result back.
package transform

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/andewx/dieselcompute"
	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/internal/logging"
	"github.com/sirupsen/logrus"
)

const (
	// ElementCount is the number of values transformed.
	ElementCount = 32
	// WorkgroupSize is the number of values one kernel invocation handles.
	WorkgroupSize = 16
	// DefaultOffset is added to every result.
	DefaultOffset = 10

	elementSize = 4
	bufferSize  = ElementCount * elementSize
)

var (
	//go:embed kernels/fib.wgsl
	wgslKernel string
	//go:embed kernels/fib.hlsl
	hlslKernel string
)

// KernelSource returns the embedded kernel for lang.
func KernelSource(lang backend.SourceLanguage) (string, error) {
	switch lang {
	case backend.SourceWGSL:
		return wgslKernel, nil
	case backend.SourceHLSL:
		return hlslKernel, nil
	}
	return "", backend.Errorf(backend.InvalidArguments, "transform.KernelSource", "no kernel for %s", lang)
}

// Definitions returns the compiler definitions the kernel expects. WGSL has no
// integer literal promotion, so the workgroup size carries its suffix.
func Definitions(lang backend.SourceLanguage) []backend.KernelDefinition {
	size := strconv.Itoa(WorkgroupSize)
	if lang == backend.SourceWGSL {
		size += "u"
	}
	return []backend.KernelDefinition{{Name: "WORKGROUP_SIZE", Value: size}}
}

// Fibonacci is the host reference of the kernel: fib(x mod 16) + offset.
func Fibonacci(x, offset uint32) uint32 {
	n := x % 16
	if n <= 1 {
		return n + offset
	}
	c, p := uint32(1), uint32(1)
	for i := uint32(2); i < n; i++ {
		c, p = c+p, c
	}
	return c + offset
}

// Expected returns the values Run produces for offset.
func Expected(offset uint32) []uint32 {
	out := make([]uint32, ElementCount)
	for i := range out {
		out[i] = Fibonacci(uint32(i), offset)
	}
	return out
}

type Options struct {
	// Adapter is the preferred adapter kind; see dieselcompute.SelectAdapter.
	Adapter      backend.AdapterKind
	Language     backend.SourceLanguage
	Toolchain    string
	Optimization backend.OptimizationLevel
	// CompileTimeout bounds an out-of-process kernel compilation.
	CompileTimeout time.Duration
	Offset         uint32
	// Timeout bounds each wait for the GPU. Zero waits forever.
	Timeout time.Duration
}

type Result struct {
	Adapter backend.AdapterInfo
	Values  []uint32
}

// Run executes the sample on a device created from factory, which must be
// initialized.
func Run(ctx context.Context, factory backend.DeviceFactory, opts Options) (*Result, error) {
	log := logging.For("transform")
	adapter, ok := dieselcompute.SelectAdapter(factory.Adapters(), opts.Adapter)
	if !ok {
		return nil, backend.Errorf(backend.Fail, "transform.Run", "no adapters available")
	}
	log.WithField("adapter", adapter.String()).Info("selected adapter")

	device, err := factory.CreateDevice()
	if err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	defer device.Release()
	if err := device.Init(backend.ComputeDeviceDesc{AdapterID: adapter.ID}); err != nil {
		return nil, fmt.Errorf("init device: %w", err)
	}

	r := &runner{device: device, opts: opts, log: log}
	defer r.release()
	values, err := r.run(ctx, factory)
	if err != nil {
		return nil, err
	}
	return &Result{Adapter: adapter, Values: values}, nil
}

// runner owns every object of one run and releases them in reverse order.
type runner struct {
	device  backend.ComputeDevice
	opts    Options
	log     *logrus.Entry
	objects []backend.DeviceObject
}

func (r *runner) keep(obj backend.DeviceObject) {
	r.objects = append(r.objects, obj)
}

func (r *runner) release() {
	for i := len(r.objects) - 1; i >= 0; i-- {
		r.objects[i].Release()
	}
	r.objects = nil
}

func (r *runner) buffer(name string, size uint64, usage backend.BufferUsage, flags backend.MemoryKindFlags) (backend.Buffer, backend.DeviceMemory, error) {
	buffer, err := r.device.CreateBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", name, err)
	}
	r.keep(buffer)
	if err := buffer.Init(backend.BufferDesc{Name: name, Size: size, Usage: usage}); err != nil {
		return nil, nil, fmt.Errorf("init %s: %w", name, err)
	}
	mem, err := backend.AllocateMemoryFor(flags, buffer)
	if err != nil {
		return nil, nil, fmt.Errorf("allocate memory for %s: %w", name, err)
	}
	r.keep(mem)
	if err := buffer.BindMemory(backend.WholeMemory(mem)); err != nil {
		return nil, nil, fmt.Errorf("bind %s: %w", name, err)
	}
	r.log.WithFields(logrus.Fields{"buffer": name, "size": mem.Desc().Size}).Debug("allocated buffer")
	return buffer, mem, nil
}

func (r *runner) compile(ctx context.Context, factory backend.DeviceFactory) ([]byte, error) {
	source, err := KernelSource(r.opts.Language)
	if err != nil {
		return nil, err
	}
	kc, err := factory.CreateKernelCompiler()
	if err != nil {
		return nil, err
	}
	defer kc.Release()
	if err := kc.Init(backend.KernelCompilerDesc{
		Name:           "Kernel compiler",
		SourceLanguage: r.opts.Language,
		Toolchain:      r.opts.Toolchain,
		Timeout:        r.opts.CompileTimeout,
	}); err != nil {
		return nil, fmt.Errorf("init kernel compiler: %w", err)
	}
	bytecode, err := kc.CompileContext(ctx, backend.KernelCompilerArgs{
		SourceCode:        []byte(source),
		OptimizationLevel: r.opts.Optimization,
		Definitions:       Definitions(r.opts.Language),
	})
	if err != nil {
		return nil, fmt.Errorf("compile kernel: %w", err)
	}
	return bytecode, nil
}

// submit runs the commands recorded by fn and waits for them.
func (r *runner) submit(list backend.CommandList, what string, fn func(*backend.CommandRecorder) error) error {
	list.ResetState()
	if err := list.Record(fn); err != nil {
		return fmt.Errorf("record %s: %w", what, err)
	}
	if err := list.Submit(); err != nil {
		return fmt.Errorf("submit %s: %w", what, err)
	}
	r.log.WithField("commands", what).Debug("waiting for command list")
	var err error
	if r.opts.Timeout > 0 {
		err = list.Fence().WaitOnCpu(r.opts.Timeout)
	} else {
		err = list.Fence().Wait()
	}
	if err != nil {
		return fmt.Errorf("wait for %s: %w", what, err)
	}
	return nil
}

func (r *runner) run(ctx context.Context, factory backend.DeviceFactory) ([]uint32, error) {
	staging, stagingMem, err := r.buffer("Staging buffer", bufferSize, backend.BufferUsageStorage, backend.HostAndDeviceAccessible)
	if err != nil {
		return nil, err
	}
	deviceBuffer, _, err := r.buffer("Device local buffer", bufferSize, backend.BufferUsageStorage, backend.DeviceAccessible)
	if err != nil {
		return nil, err
	}
	constants, constantMem, err := r.buffer("Constant buffer", elementSize, backend.BufferUsageConstant, backend.HostAndDeviceAccessible)
	if err != nil {
		return nil, err
	}

	if err := fill(backend.WholeMemory(constantMem), func(v []uint32) {
		v[0] = r.opts.Offset
	}); err != nil {
		return nil, fmt.Errorf("map constant memory: %w", err)
	}
	stagingSlice, err := backend.NewDeviceMemorySlice(stagingMem, 0, bufferSize)
	if err != nil {
		return nil, err
	}
	if err := fill(stagingSlice, func(v []uint32) {
		for i := range v {
			v[i] = uint32(i)
		}
	}); err != nil {
		return nil, fmt.Errorf("map staging memory: %w", err)
	}

	list, err := r.device.CreateCommandList()
	if err != nil {
		return nil, err
	}
	r.keep(list)
	if err := list.Init(backend.CommandListDesc{Name: "Command list", QueueKind: backend.QueueCompute}); err != nil {
		return nil, fmt.Errorf("init command list: %w", err)
	}

	region := backend.BufferCopyRegion{Size: bufferSize}
	if err := r.submit(list, "upload", func(rec *backend.CommandRecorder) error {
		rec.Copy(staging, deviceBuffer, region)
		return nil
	}); err != nil {
		return nil, err
	}

	bytecode, err := r.compile(ctx, factory)
	if err != nil {
		return nil, err
	}

	binding, err := r.device.CreateResourceBinding()
	if err != nil {
		return nil, err
	}
	r.keep(binding)
	if err := binding.Init(backend.ResourceBindingDesc{
		Name: "Resource binding",
		Layout: []backend.KernelResourceDesc{
			{BindingIndex: 0, Kind: backend.ResourceRWBuffer},
			{BindingIndex: 1, Kind: backend.ResourceConstantBuffer},
		},
	}); err != nil {
		return nil, fmt.Errorf("init resource binding: %w", err)
	}
	if err := binding.SetVariable(0, deviceBuffer); err != nil {
		return nil, err
	}
	if err := binding.SetVariable(1, constants); err != nil {
		return nil, err
	}

	kernel, err := r.device.CreateKernel()
	if err != nil {
		return nil, err
	}
	r.keep(kernel)
	if err := kernel.Init(backend.KernelDesc{Name: "Compute kernel", ResourceBinding: binding, Bytecode: bytecode}); err != nil {
		return nil, fmt.Errorf("init kernel: %w", err)
	}

	if err := r.submit(list, "dispatch", func(rec *backend.CommandRecorder) error {
		rec.Dispatch(kernel, ElementCount/WorkgroupSize, 1, 1)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := r.submit(list, "readback", func(rec *backend.CommandRecorder) error {
		rec.Copy(deviceBuffer, staging, region)
		return nil
	}); err != nil {
		return nil, err
	}

	view, err := backend.MapSlice[uint32](stagingSlice)
	if err != nil {
		return nil, fmt.Errorf("map staging memory: %w", err)
	}
	defer stagingSlice.Unmap()
	return append([]uint32(nil), view...), nil
}

func fill(slice backend.DeviceMemorySlice, fn func([]uint32)) error {
	view, err := backend.MapSlice[uint32](slice)
	if err != nil {
		return err
	}
	defer slice.Unmap()
	fn(view)
	return nil
}
