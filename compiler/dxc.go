package compiler

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/andewx/dieselcompute/backend"
)

const (
	dxcExecutable = "dxc"
	dxcProfile    = "cs_6_0"
)

// dxcToolchain runs the DirectX shader compiler to produce SPIR-V from HLSL.
type dxcToolchain struct {
	path string
}

func locateDXC(backend.KernelCompilerDesc) (toolchain, error) {
	path, err := exec.LookPath(dxcExecutable)
	if err != nil {
		return nil, backend.Wrap(backend.Fail, "KernelCompiler.Init", err)
	}
	return &dxcToolchain{path: path}, nil
}

func (t *dxcToolchain) Name() string {
	return dxcExecutable
}

func dxcOptimizationFlag(level backend.OptimizationLevel) string {
	switch level.Resolve() {
	case backend.OptimizationNone:
		return "-Od"
	case backend.OptimizationO1:
		return "-O1"
	case backend.OptimizationO2:
		return "-O2"
	}
	return "-O3"
}

func dxcArguments(req request, input, output string) []string {
	args := []string{
		"-spirv",
		"-T", dxcProfile,
		"-E", req.entryPoint,
		"-fspv-target-env=vulkan1.1",
		"-fvk-use-dx-layout",
		dxcOptimizationFlag(req.level),
	}
	for _, d := range req.definitions {
		if d.Value == "" {
			args = append(args, "-D", d.Name)
		} else {
			args = append(args, "-D", d.Name+"="+d.Value)
		}
	}
	return append(args, "-Fo", output, input)
}

func (t *dxcToolchain) Compile(ctx context.Context, req request) ([]byte, error) {
	dir, err := os.MkdirTemp("", "dieselcompute-dxc-")
	if err != nil {
		return nil, backend.Wrap(backend.Fail, "KernelCompiler.Compile", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "kernel.hlsl")
	output := filepath.Join(dir, "kernel.spv")
	if err := os.WriteFile(input, req.source, 0o600); err != nil {
		return nil, backend.Wrap(backend.Fail, "KernelCompiler.Compile", err)
	}

	var diagnostics bytes.Buffer
	cmd := exec.CommandContext(ctx, t.path, dxcArguments(req, input, output)...)
	cmd.Stdout = &diagnostics
	cmd.Stderr = &diagnostics
	if err := cmd.Run(); err != nil {
		return nil, toolchainError(ctx, err, diagnostics.String())
	}
	return os.ReadFile(output)
}

// toolchainError maps a toolchain failure into the result code taxonomy and
// keeps the toolchain diagnostics as the message.
func toolchainError(ctx context.Context, err error, diagnostics string) error {
	code := backend.Fail
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		code = backend.Timeout
	case errors.Is(ctx.Err(), context.Canceled):
		code = backend.Abort
	case errors.Is(err, fs.ErrPermission):
		code = backend.AccessDenied
	case errors.Is(err, syscall.ENOMEM):
		code = backend.OutOfMemory
	}
	return &backend.Error{
		Code:    code,
		Op:      "KernelCompiler.Compile",
		Message: strings.TrimSpace(diagnostics),
		Err:     err,
	}
}
