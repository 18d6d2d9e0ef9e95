package compiler

import (
	"context"
	"regexp"

	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/internal/logging"
	"github.com/gogpu/naga"
)

// nagaToolchain compiles WGSL in-process. WGSL has no preprocessor, so
// definitions are substituted before parsing.
type nagaToolchain struct{}

func locateNaga(backend.KernelCompilerDesc) (toolchain, error) {
	return nagaToolchain{}, nil
}

func (nagaToolchain) Name() string {
	return "naga"
}

func (nagaToolchain) Compile(ctx context.Context, req request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, toolchainError(ctx, err, "")
	}
	source := ApplyDefinitions(string(req.source), req.definitions)
	if !declaresFunction(source, req.entryPoint) {
		return nil, backend.Errorf(backend.InvalidArguments, "KernelCompiler.Compile",
			"entry point %q is not declared", req.entryPoint)
	}
	if req.level != backend.OptimizationMax {
		logging.For("compiler").WithField("level", req.level.String()).
			Debug("naga ignores optimization levels")
	}
	code, err := naga.Compile(source)
	if err != nil {
		return nil, toolchainError(ctx, err, err.Error())
	}
	return code, nil
}

func declaresFunction(source, name string) bool {
	re := regexp.MustCompile(`\bfn\s+` + regexp.QuoteMeta(name) + `\s*\(`)
	return re.MatchString(source)
}
