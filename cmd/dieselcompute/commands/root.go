package commands

import (
	"fmt"

	"github.com/andewx/dieselcompute"
	"github.com/andewx/dieselcompute/backend"
	"github.com/andewx/dieselcompute/internal/config"
	"github.com/andewx/dieselcompute/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool

	appConfig *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dieselcompute",
	Short: "Run compute kernels on the GPU",
	Long: `dieselcompute drives GPU compute through a backend-neutral device API.

It lists the adapters a backend can see, compiles HLSL or WGSL kernels to
SPIR-V and runs the array transformation sample end to end.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dieselcompute.yaml or $HOME/.dieselcompute/dieselcompute.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig loads the configuration and installs the library logger.
func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Console = true
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	dieselcompute.SetLogger(log)
	log.WithFields(logrus.Fields{
		"backend": cfg.Backend.Kind,
		"adapter": cfg.Backend.Adapter,
	}).Debug("configuration loaded")
	appConfig = cfg
	return nil
}

// openFactory creates and initializes the configured device factory.
func openFactory() (backend.DeviceFactory, error) {
	kind, err := appConfig.BackendKind()
	if err != nil {
		return nil, err
	}
	factory, err := dieselcompute.CreateDeviceFactory(kind)
	if err != nil {
		return nil, err
	}
	if err := factory.Init(appConfig.FactoryDesc()); err != nil {
		factory.Release()
		return nil, fmt.Errorf("initializing %s backend: %w", kind, err)
	}
	return factory, nil
}
