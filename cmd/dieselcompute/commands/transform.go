package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/internal/transform"
	"github.com/spf13/cobra"
)

var (
	transformLang    string
	transformOffset  uint32
	transformTimeout time.Duration
	transformVerify  bool
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Run the array transformation sample",
	Long: `Fill a buffer with 0..31, run a Fibonacci kernel over it on the selected
adapter and print the values read back.`,
	Args: cobra.NoArgs,
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().StringVar(&transformLang, "lang", "wgsl", "kernel source language (wgsl or hlsl)")
	transformCmd.Flags().Uint32Var(&transformOffset, "offset", transform.DefaultOffset, "value added to every result")
	transformCmd.Flags().DurationVar(&transformTimeout, "timeout", 10*time.Second, "bound on each GPU wait (0 waits forever)")
	transformCmd.Flags().BoolVar(&transformVerify, "verify", true, "compare the results with the host reference")
	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	lang, err := backend.ParseSourceLanguage(transformLang)
	if err != nil {
		return err
	}
	adapter, err := appConfig.AdapterKind()
	if err != nil {
		return err
	}
	level, err := appConfig.OptimizationLevel()
	if err != nil {
		return err
	}

	factory, err := openFactory()
	if err != nil {
		return err
	}
	defer factory.Release()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	res, err := transform.Run(ctx, factory, transform.Options{
		Adapter:        adapter,
		Language:       lang,
		Toolchain:      appConfig.Compiler.Toolchain,
		Optimization:   level,
		CompileTimeout: appConfig.Compiler.Timeout,
		Offset:         transformOffset,
		Timeout:        transformTimeout,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Adapter: %s\n", res.Adapter)
	for i, v := range res.Values {
		fmt.Fprintf(out, "%2d: %d\n", i, v)
	}

	if transformVerify {
		want := transform.Expected(transformOffset)
		for i, v := range res.Values {
			if v != want[i] {
				return fmt.Errorf("value %d is %d, want %d", i, v, want[i])
			}
		}
		fmt.Fprintln(out, "Results match the host reference")
	}
	return nil
}
