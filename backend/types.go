package backend

import (
	"fmt"
	"strings"
)

// BackendKind selects the implementation behind a device factory.
type BackendKind int

const (
	BackendCpu BackendKind = iota
	BackendVulkan
)

func (k BackendKind) String() string {
	switch k {
	case BackendCpu:
		return "Cpu"
	case BackendVulkan:
		return "Vulkan"
	}
	return fmt.Sprintf("BackendKind(%d)", int(k))
}

// ParseBackendKind accepts the lower-case names used in configuration files.
func ParseBackendKind(s string) (BackendKind, error) {
	switch strings.ToLower(s) {
	case "cpu":
		return BackendCpu, nil
	case "vulkan", "vk":
		return BackendVulkan, nil
	}
	return 0, Errorf(InvalidArguments, "ParseBackendKind", "unknown backend %q", s)
}

type AdapterKind int

const (
	AdapterNone AdapterKind = iota
	AdapterIntegrated
	AdapterDiscrete
	AdapterVirtual
	AdapterCpu
)

func (k AdapterKind) String() string {
	switch k {
	case AdapterNone:
		return "None"
	case AdapterIntegrated:
		return "Integrated"
	case AdapterDiscrete:
		return "Discrete"
	case AdapterVirtual:
		return "Virtual"
	case AdapterCpu:
		return "Cpu"
	}
	return fmt.Sprintf("AdapterKind(%d)", int(k))
}

func ParseAdapterKind(s string) (AdapterKind, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return AdapterNone, nil
	case "integrated":
		return AdapterIntegrated, nil
	case "discrete":
		return AdapterDiscrete, nil
	case "virtual":
		return AdapterVirtual, nil
	case "cpu":
		return AdapterCpu, nil
	}
	return AdapterNone, Errorf(InvalidArguments, "ParseAdapterKind", "unknown adapter kind %q", s)
}

// AdapterInfo describes one adapter found during enumeration.
type AdapterInfo struct {
	ID   int
	Kind AdapterKind
	Name string
}

func (a AdapterInfo) String() string {
	return fmt.Sprintf("#%d %s (%s)", a.ID, a.Name, a.Kind)
}

// ObjectState tracks the two-phase initialization of device objects.
type ObjectState int

const (
	Uninitialized ObjectState = iota
	Initialized
	Failed
)

func (s ObjectState) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initialized:
		return "Initialized"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("ObjectState(%d)", int(s))
}

type MemoryKindFlags uint32

const (
	MemoryNone              MemoryKindFlags = 0
	HostAccessible          MemoryKindFlags = 1
	DeviceAccessible        MemoryKindFlags = 2
	HostAndDeviceAccessible                 = HostAccessible | DeviceAccessible
)

func (f MemoryKindFlags) Has(bits MemoryKindFlags) bool {
	return f&bits == bits
}

func (f MemoryKindFlags) String() string {
	switch f {
	case MemoryNone:
		return "None"
	case HostAccessible:
		return "HostAccessible"
	case DeviceAccessible:
		return "DeviceAccessible"
	case HostAndDeviceAccessible:
		return "HostAndDeviceAccessible"
	}
	return fmt.Sprintf("MemoryKindFlags(%#x)", uint32(f))
}

type HardwareQueueKindFlags uint32

const (
	QueueNone        HardwareQueueKindFlags = 0
	QueueGraphicsBit HardwareQueueKindFlags = 1
	QueueComputeBit  HardwareQueueKindFlags = 2
	QueueTransferBit HardwareQueueKindFlags = 4

	QueueGraphics = QueueGraphicsBit | QueueComputeBit | QueueTransferBit
	QueueCompute  = QueueComputeBit | QueueTransferBit
	QueueTransfer = QueueTransferBit
)

func (f HardwareQueueKindFlags) Has(bits HardwareQueueKindFlags) bool {
	return f&bits == bits
}

func (f HardwareQueueKindFlags) String() string {
	if f == QueueNone {
		return "None"
	}
	var parts []string
	if f&QueueGraphicsBit != 0 {
		parts = append(parts, "Graphics")
	}
	if f&QueueComputeBit != 0 {
		parts = append(parts, "Compute")
	}
	if f&QueueTransferBit != 0 {
		parts = append(parts, "Transfer")
	}
	return strings.Join(parts, "|")
}

type BufferUsage int

const (
	BufferUsageStorage BufferUsage = iota
	BufferUsageConstant
)

func (u BufferUsage) String() string {
	if u == BufferUsageConstant {
		return "Constant"
	}
	return "Storage"
}

// AccessFlags describe how a resource is touched on either side of a barrier.
type AccessFlags uint32

const (
	AccessNone          AccessFlags = 0
	AccessKernelRead    AccessFlags = 1 << 0
	AccessKernelWrite   AccessFlags = 1 << 1
	AccessTransferRead  AccessFlags = 1 << 2
	AccessTransferWrite AccessFlags = 1 << 3
	AccessHostRead      AccessFlags = 1 << 4
	AccessHostWrite     AccessFlags = 1 << 5
)

type CommandListFlags uint32

const (
	CommandListNone          CommandListFlags = 0
	CommandListOneTimeSubmit CommandListFlags = 1
)

type CommandListState int

const (
	CommandListInitial CommandListState = iota
	CommandListRecording
	CommandListExecutable
	CommandListPending
	CommandListInvalid
)

func (s CommandListState) String() string {
	switch s {
	case CommandListInitial:
		return "Initial"
	case CommandListRecording:
		return "Recording"
	case CommandListExecutable:
		return "Executable"
	case CommandListPending:
		return "Pending"
	case CommandListInvalid:
		return "Invalid"
	}
	return fmt.Sprintf("CommandListState(%d)", int(s))
}

type FenceState int

const (
	FenceReset FenceState = iota
	FenceSignaled
)

func (s FenceState) String() string {
	if s == FenceSignaled {
		return "Signaled"
	}
	return "Reset"
}

// KernelResourceKind is the declared kind of one kernel resource slot.
type KernelResourceKind int

const (
	ResourceBuffer KernelResourceKind = iota
	ResourceConstantBuffer
	ResourceRWBuffer
	ResourceSampledTexture
	ResourceRWTexture
	ResourceSampler
)

func (k KernelResourceKind) IsBuffer() bool {
	return k == ResourceBuffer || k == ResourceConstantBuffer || k == ResourceRWBuffer
}

func (k KernelResourceKind) String() string {
	switch k {
	case ResourceBuffer:
		return "Buffer"
	case ResourceConstantBuffer:
		return "ConstantBuffer"
	case ResourceRWBuffer:
		return "RWBuffer"
	case ResourceSampledTexture:
		return "SampledTexture"
	case ResourceRWTexture:
		return "RWTexture"
	case ResourceSampler:
		return "Sampler"
	}
	return fmt.Sprintf("KernelResourceKind(%d)", int(k))
}

// OptimizationLevel of a kernel compilation. The zero value selects
// OptimizationMax.
type OptimizationLevel int

const (
	OptimizationDefault OptimizationLevel = iota
	OptimizationNone
	OptimizationO1
	OptimizationO2
	OptimizationO3

	OptimizationMax = OptimizationO3
)

// Resolve maps OptimizationDefault to OptimizationMax.
func (l OptimizationLevel) Resolve() OptimizationLevel {
	if l == OptimizationDefault {
		return OptimizationMax
	}
	return l
}

func (l OptimizationLevel) String() string {
	switch l {
	case OptimizationDefault:
		return "Default"
	case OptimizationNone:
		return "None"
	case OptimizationO1:
		return "O1"
	case OptimizationO2:
		return "O2"
	case OptimizationO3:
		return "O3"
	}
	return fmt.Sprintf("OptimizationLevel(%d)", int(l))
}

func ParseOptimizationLevel(s string) (OptimizationLevel, error) {
	switch strings.ToUpper(s) {
	case "NONE", "O0", "0":
		return OptimizationNone, nil
	case "O1", "1":
		return OptimizationO1, nil
	case "O2", "2":
		return OptimizationO2, nil
	case "O3", "3", "MAX":
		return OptimizationO3, nil
	case "", "DEFAULT":
		return OptimizationDefault, nil
	}
	return OptimizationDefault, Errorf(InvalidArguments, "ParseOptimizationLevel", "unknown optimization level %q", s)
}

type SourceLanguage int

const (
	SourceHLSL SourceLanguage = iota
	SourceWGSL
)

func (l SourceLanguage) String() string {
	switch l {
	case SourceHLSL:
		return "HLSL"
	case SourceWGSL:
		return "WGSL"
	}
	return fmt.Sprintf("SourceLanguage(%d)", int(l))
}

func ParseSourceLanguage(s string) (SourceLanguage, error) {
	switch strings.ToLower(s) {
	case "hlsl":
		return SourceHLSL, nil
	case "wgsl":
		return SourceWGSL, nil
	}
	return SourceHLSL, Errorf(InvalidArguments, "ParseSourceLanguage", "unknown source language %q", s)
}

type TargetLanguage int

const (
	TargetSPIRV TargetLanguage = iota
)

func (l TargetLanguage) String() string {
	if l == TargetSPIRV {
		return "SPIR-V"
	}
	return fmt.Sprintf("TargetLanguage(%d)", int(l))
}
