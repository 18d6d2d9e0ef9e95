// Package compiler turns kernel source into SPIR-V bytecode by driving an
// external shader toolchain.
package compiler

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/internal/logging"
	"github.com/andewx/dieselcompute/memory"
	"github.com/sirupsen/logrus"
)

// DebugDefinition is defined for every compilation: "1" in builds tagged
// dieselcompute_debug, "0" otherwise.
const DebugDefinition = "DIESEL_DEBUG"

// request is what a toolchain receives after argument defaults are applied.
type request struct {
	source      []byte
	entryPoint  string
	level       backend.OptimizationLevel
	definitions []backend.KernelDefinition
}

type toolchain interface {
	Name() string
	Compile(ctx context.Context, req request) ([]byte, error)
}

// locator finds a toolchain at Init time.
type locator func(desc backend.KernelCompilerDesc) (toolchain, error)

var toolchains = map[string]locator{
	"dxc":  locateDXC,
	"naga": locateNaga,
}

func defaultToolchain(lang backend.SourceLanguage) string {
	if lang == backend.SourceWGSL {
		return "naga"
	}
	return "dxc"
}

// Toolchains lists the registered toolchain names.
func Toolchains() []string {
	return slices.Sorted(maps.Keys(toolchains))
}

var _ backend.KernelCompiler = (*KernelCompiler)(nil)

// KernelCompiler implements backend.KernelCompiler.
type KernelCompiler struct {
	memory.ObjectBase
	desc      backend.KernelCompilerDesc
	toolchain toolchain
}

// New returns an uninitialized compiler holding one reference.
func New() *KernelCompiler {
	return memory.Allocate[KernelCompiler]()
}

func (c *KernelCompiler) Desc() backend.KernelCompilerDesc {
	return c.desc
}

// Init locates the toolchain for desc and fails if it cannot be found.
func (c *KernelCompiler) Init(desc backend.KernelCompilerDesc) error {
	if desc.TargetLanguage != backend.TargetSPIRV {
		return backend.Errorf(backend.NotImplemented, "KernelCompiler.Init", "target %s", desc.TargetLanguage)
	}
	name := desc.Toolchain
	if name == "" {
		name = defaultToolchain(desc.SourceLanguage)
	}
	locate, ok := toolchains[strings.ToLower(name)]
	if !ok {
		return backend.Errorf(backend.InvalidArguments, "KernelCompiler.Init", "unknown toolchain %q", name)
	}
	tc, err := locate(desc)
	if err != nil {
		return err
	}
	c.desc = desc
	c.toolchain = tc
	logging.For("compiler").WithFields(logrus.Fields{
		"name":      desc.Name,
		"toolchain": tc.Name(),
		"language":  desc.SourceLanguage.String(),
	}).Debug("kernel compiler initialized")
	return nil
}

func (c *KernelCompiler) Reset() {
	c.toolchain = nil
	c.desc = backend.KernelCompilerDesc{}
}

func (c *KernelCompiler) Destroy() {
	c.Reset()
}

func (c *KernelCompiler) Compile(args backend.KernelCompilerArgs) ([]byte, error) {
	return c.CompileContext(context.Background(), args)
}

// CompileContext compiles args.SourceCode and returns a new byte slice holding
// the SPIR-V module.
func (c *KernelCompiler) CompileContext(ctx context.Context, args backend.KernelCompilerArgs) ([]byte, error) {
	if c.toolchain == nil {
		return nil, backend.Errorf(backend.InvalidOperation, "KernelCompiler.Compile", "compiler is not initialized")
	}
	if len(args.SourceCode) == 0 {
		return nil, backend.Errorf(backend.InvalidArguments, "KernelCompiler.Compile", "empty source")
	}
	if c.desc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.desc.Timeout)
		defer cancel()
	}

	req := request{
		source:      args.SourceCode,
		entryPoint:  args.EntryPoint,
		level:       args.OptimizationLevel.Resolve(),
		definitions: withDebugDefinition(args.Definitions),
	}
	if req.entryPoint == "" {
		req.entryPoint = backend.DefaultEntryPoint
	}

	log := logging.For("compiler").WithField("toolchain", c.toolchain.Name())
	code, err := c.toolchain.Compile(ctx, req)
	if err != nil {
		log.WithError(err).Error("kernel compilation failed")
		return nil, err
	}
	if !IsSPIRV(code) {
		return nil, backend.Errorf(backend.Fail, "KernelCompiler.Compile", "%s produced %d bytes that are not SPIR-V", c.toolchain.Name(), len(code))
	}
	log.WithField("bytes", len(code)).Debug("kernel compiled")

	out := make([]byte, len(code))
	copy(out, code)
	return out, nil
}

func withDebugDefinition(defs []backend.KernelDefinition) []backend.KernelDefinition {
	value := "0"
	if backend.DebugBuild {
		value = "1"
	}
	out := make([]backend.KernelDefinition, 0, len(defs)+1)
	out = append(out, defs...)
	return append(out, backend.KernelDefinition{Name: DebugDefinition, Value: value})
}
