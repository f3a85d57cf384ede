package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gettrapd/trapd/pkg/config"
	"github.com/gettrapd/trapd/pkg/sink"
)

var (
	initForce       bool
	initOutput      string
	initFormat      string
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter trapd configuration file",
	Example: `  # Create default trapd.yaml
  trapd init

  # Interactive setup
  trapd init -i

  # Create with custom filename
  trapd init -o my-trap.yaml

  # Create JSON config
  trapd init --format json -o trapd.json

  # Overwrite existing config
  trapd init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(initOutput, initFormat, initForce, initInteractive)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "trapd.yaml", "Output filename")
	initCmd.Flags().StringVar(&initFormat, "format", "", "Output format: yaml or json (default: inferred from filename)")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Interactive mode - prompts for configuration")
}

func runInit(outputPath, format string, force, interactive bool) error {
	// Determine output format
	outputFormat := strings.ToLower(format)
	if outputFormat == "" {
		// Infer from filename extension
		if strings.ToLower(filepath.Ext(outputPath)) == ".json" {
			outputFormat = "json"
		} else {
			outputFormat = "yaml"
		}
	}
	if outputFormat != "yaml" && outputFormat != "json" {
		return fmt.Errorf("invalid format: %s (must be yaml or json)", outputFormat)
	}

	// Check if file already exists
	if _, err := os.Stat(outputPath); err == nil {
		if !force {
			return fmt.Errorf("file already exists: %s\n\nUse --force to overwrite", outputPath)
		}
	}

	cfg := starterConfig()
	if interactive {
		answered, err := runInteractiveInit()
		if err != nil {
			return err
		}
		cfg = answered
	}

	var data []byte
	var err error
	if outputFormat == "json" {
		data, err = config.ToJSON(cfg)
	} else if interactive {
		yamlData, yamlErr := config.ToYAML(cfg)
		if yamlErr != nil {
			err = yamlErr
		} else {
			data = append([]byte(configFileHeader), yamlData...)
		}
	} else {
		// The canned starter carries inline comments the marshaller
		// cannot produce.
		data = []byte(starterYAML)
	}
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Printf("Created %s\n", outputPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  trapd serve --config %s\n", outputPath)
	fmt.Printf("  curl http://localhost:%d/anything\n", cfg.Listen.Port)
	if cfg.Sink != nil && cfg.Sink.Kind == sink.KindFile {
		file := cfg.Sink.File
		if file == "" {
			file = sink.DefaultFile
		}
		fmt.Printf("  tail -f %s\n", file)
	}

	return nil
}

// configFileHeader tops generated YAML configs.
const configFileHeader = `# trapd.yaml
# Generated by: trapd init
#
# Start server:  trapd serve --config trapd.yaml
# Send a probe:  curl http://localhost:4180/anything

`

// starterYAML is the canned starter configuration with explanatory
// comments.
const starterYAML = configFileHeader + `listen:
  # Capture listener: answers every request with "OK" and records it.
  port: 4180

ops:
  # Operational listener: /health and /metrics. Kept off the capture
  # port so the trap can record requests to any path.
  port: 4181

capture:
  # Optional boolean expression over the record fields; requests it
  # rejects are answered but not recorded.
  # filter: 'method == "POST" || hasPrefix(uri, "/wp-")'
  ignorePaths:
    - /favicon.ico

sink:
  # Where captures go: file, remote, or stdout.
  kind: file
  file: capture.log
  # kind: remote
  # url: https://collector.example.com/ingest

logging:
  level: info
  format: text
`

// starterConfig mirrors starterYAML as a structure, for JSON output and
// the init summary.
func starterConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Capture.IgnorePaths = []string{"/favicon.ico"}
	return cfg
}

// runInteractiveInit prompts for the basic configuration choices.
func runInteractiveInit() (*config.Config, error) {
	cfg := config.DefaultConfig()

	titler := cases.Title(language.English)
	kinds := []string{sink.KindFile, sink.KindRemote, sink.KindStdout}
	options := make([]huh.Option[string], 0, len(kinds))
	for _, kind := range kinds {
		options = append(options, huh.NewOption(titler.String(kind), kind))
	}

	portStr := strconv.Itoa(cfg.Listen.Port)
	sinkChoice := sink.KindFile
	capturePath := sink.DefaultFile
	remoteTarget := ""
	opsEnabled := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Which port should the trap listen on?").
				Value(&portStr).
				Validate(func(s string) error {
					port, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || port < 0 || port > 65535 {
						return errors.New("port must be a number between 0 and 65535")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Where should captures go?").
				Options(options...).
				Value(&sinkChoice),
			huh.NewInput().
				Title("Capture file path (file sink)").
				Placeholder(sink.DefaultFile).
				Value(&capturePath),
			huh.NewInput().
				Title("Collection endpoint URL (remote sink)").
				Placeholder("https://collector.example.com/ingest").
				Value(&remoteTarget).
				Validate(func(s string) error {
					if sinkChoice == sink.KindRemote && strings.TrimSpace(s) == "" {
						return errors.New("the remote sink needs a collection endpoint URL")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Enable the operational listener (/health, /metrics)?").
				Value(&opsEnabled),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}
	cfg.Listen.Port = port
	cfg.Ops.Enabled = &opsEnabled

	cfg.Sink = &sink.Config{Kind: sinkChoice}
	switch sinkChoice {
	case sink.KindFile:
		if strings.TrimSpace(capturePath) != "" {
			cfg.Sink.File = strings.TrimSpace(capturePath)
		}
	case sink.KindRemote:
		cfg.Sink.URL = strings.TrimSpace(remoteTarget)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Printf("Sink: %s\n", titler.String(sinkChoice))
	return cfg, nil
}
