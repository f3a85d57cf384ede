package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gettrapd/trapd/internal/cliconfig"
	"github.com/gettrapd/trapd/pkg/config"
)

var (
	validateConfigFile string
	validateVerbose    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a trapd configuration file",
	Long: `Validate a trapd configuration file without starting any listeners.

This command checks:
  - YAML/JSON syntax
  - Port ranges and listener port conflicts
  - Sink selection and parameters
  - Capture filter expressions and ignore-path globs`,
	Example: `  # Validate config discovered in the current directory
  trapd validate

  # Validate a specific config file
  trapd validate -f ./trapd.yaml

  # Verbose output with a configuration summary
  trapd validate -f trapd.yaml --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(validateConfigFile, validateVerbose)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateConfigFile, "config", "f", "", "Config file path (default: discover trapd.yaml)")
	validateCmd.Flags().BoolVar(&validateVerbose, "verbose", false, "Show detailed validation information")
}

func runValidate(configFile string, verbose bool) error {
	path := configFile
	if path == "" {
		path = cliconfig.ConfigFileFromEnv()
	}
	if path == "" {
		found, ok := config.Discover(".")
		if !ok {
			return fmt.Errorf("no config file found (looked for %v); pass one with --config", config.DefaultConfigNames)
		}
		path = found
		if verbose {
			fmt.Printf("Discovered config: %s\n", path)
		}
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", path, err)
		return err
	}

	fmt.Println("Configuration is valid.")

	if verbose {
		printConfigSummary(cfg)
	}
	return nil
}

// printConfigSummary lists what the validated configuration will do.
func printConfigSummary(cfg *config.Config) {
	fmt.Println()
	fmt.Println("Configuration Summary")
	fmt.Println("---------------------")

	fmt.Printf("Capture listener: %s\n", cfg.ListenAddr())
	if cfg.Ops.IsEnabled() {
		fmt.Printf("Ops listener:     %s\n", cfg.OpsAddr())
	} else {
		fmt.Println("Ops listener:     disabled")
	}

	if cfg.Sink != nil {
		switch {
		case cfg.Sink.URL != "":
			fmt.Printf("Sink:             %s -> %s\n", cfg.Sink.Kind, cfg.Sink.URL)
		case cfg.Sink.File != "":
			fmt.Printf("Sink:             %s -> %s\n", cfg.Sink.Kind, cfg.Sink.File)
		default:
			fmt.Printf("Sink:             %s\n", cfg.Sink.Kind)
		}
	}

	if cfg.Capture.Filter != "" {
		fmt.Printf("Capture filter:   %s\n", cfg.Capture.Filter)
	}
	if len(cfg.Capture.IgnorePaths) > 0 {
		fmt.Printf("Ignored paths:    %d pattern(s)\n", len(cfg.Capture.IgnorePaths))
	}

	fmt.Printf("Logging:          %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
}
