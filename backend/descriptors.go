package backend

import "time"

type DeviceFactoryDesc struct {
	ApplicationName  string
	EnableValidation bool
}

type ComputeDeviceDesc struct {
	AdapterID int
}

type BufferDesc struct {
	Name  string
	Size  uint64
	Usage BufferUsage
}

// DeviceMemoryDesc describes an allocation. Objects lists every device object
// the memory must be able to host; after Init, Size holds the real allocation
// size.
type DeviceMemoryDesc struct {
	Name    string
	Size    uint64
	Objects []DeviceObject
	Flags   MemoryKindFlags
}

type FenceDesc struct {
	Name         string
	InitialState FenceState
}

type CommandListDesc struct {
	Name      string
	QueueKind HardwareQueueKindFlags
	Flags     CommandListFlags
}

func (d CommandListDesc) OneTimeSubmit() bool {
	return d.Flags&CommandListOneTimeSubmit != 0
}

type KernelResourceDesc struct {
	BindingIndex int
	Kind         KernelResourceKind
}

type ResourceBindingDesc struct {
	Name   string
	Layout []KernelResourceDesc
}

// Slot returns the layout entry declared at bindingIndex.
func (d ResourceBindingDesc) Slot(bindingIndex int) (KernelResourceDesc, bool) {
	for _, r := range d.Layout {
		if r.BindingIndex == bindingIndex {
			return r, true
		}
	}
	return KernelResourceDesc{}, false
}

const DefaultEntryPoint = "main"

type KernelDesc struct {
	Name            string
	ResourceBinding ResourceBinding
	Bytecode        []byte
	EntryPoint      string
}

type KernelCompilerDesc struct {
	Name           string
	SourceLanguage SourceLanguage
	TargetLanguage TargetLanguage
	// Toolchain overrides the toolchain chosen for SourceLanguage.
	Toolchain string
	// Timeout bounds one out-of-process compilation. Zero means no limit.
	Timeout time.Duration
}

type KernelDefinition struct {
	Name  string
	Value string
}

type KernelCompilerArgs struct {
	SourceCode        []byte
	EntryPoint        string
	OptimizationLevel OptimizationLevel
	Definitions       []KernelDefinition
}

type MemoryBarrierDesc struct {
	SourceAccess    AccessFlags
	DestAccess      AccessFlags
	SourceQueueKind HardwareQueueKindFlags
	DestQueueKind   HardwareQueueKindFlags
}

type BufferCopyRegion struct {
	Size         uint64
	SourceOffset uint64
	DestOffset   uint64
}
