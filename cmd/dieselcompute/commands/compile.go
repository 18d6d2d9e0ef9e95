package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/compiler"
	"github.com/spf13/cobra"
)

var (
	compileOutput       string
	compileDefines      []string
	compileOptimization string
	compileEntry        string
	compileLang         string
)

var compileCmd = &cobra.Command{
	Use:   "compile <file>",
	Short: "Compile a kernel source file to SPIR-V",
	Long: `Compile an HLSL or WGSL compute kernel to SPIR-V.

The source language is taken from --lang or the file extension. HLSL is
compiled with dxc, WGSL in process with naga.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "output file (default is the input with a .spv extension)")
	compileCmd.Flags().StringArrayVarP(&compileDefines, "define", "D", nil, "definition NAME=VALUE, repeatable")
	compileCmd.Flags().StringVarP(&compileOptimization, "optimization", "O", "", "optimization level (none, O1, O2, O3); defaults to compiler.optimization")
	compileCmd.Flags().StringVar(&compileEntry, "entry", backend.DefaultEntryPoint, "entry point")
	compileCmd.Flags().StringVar(&compileLang, "lang", "", "source language (hlsl or wgsl)")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	input := args[0]
	lang, err := sourceLanguage(compileLang, input)
	if err != nil {
		return err
	}
	opt := compileOptimization
	if opt == "" {
		opt = appConfig.Compiler.Optimization
	}
	level, err := backend.ParseOptimizationLevel(opt)
	if err != nil {
		return err
	}
	defs, err := parseDefinitions(compileDefines)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading kernel source: %w", err)
	}

	kc := compiler.New()
	defer kc.Release()
	if err := kc.Init(backend.KernelCompilerDesc{
		Name:           filepath.Base(input),
		SourceLanguage: lang,
		Toolchain:      appConfig.Compiler.Toolchain,
		Timeout:        appConfig.Compiler.Timeout,
	}); err != nil {
		return err
	}
	code, err := kc.CompileContext(cmd.Context(), backend.KernelCompilerArgs{
		SourceCode:        source,
		EntryPoint:        compileEntry,
		OptimizationLevel: level,
		Definitions:       defs,
	})
	if err != nil {
		return err
	}

	output := compileOutput
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".spv"
	}
	if err := os.WriteFile(output, code, 0644); err != nil {
		return fmt.Errorf("writing SPIR-V: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes of SPIR-V to %s\n", len(code), output)
	return nil
}

func sourceLanguage(flag, path string) (backend.SourceLanguage, error) {
	if flag != "" {
		return backend.ParseSourceLanguage(flag)
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return backend.SourceHLSL, fmt.Errorf("cannot infer the source language of %s; use --lang", path)
	}
	return backend.ParseSourceLanguage(ext)
}

func parseDefinitions(defines []string) ([]backend.KernelDefinition, error) {
	defs := make([]backend.KernelDefinition, 0, len(defines))
	for _, d := range defines {
		name, value, _ := strings.Cut(d, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid definition %q", d)
		}
		defs = append(defs, backend.KernelDefinition{Name: name, Value: value})
	}
	return defs, nil
}
