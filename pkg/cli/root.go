package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	opsURL     string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trapd",
	Short: "trapd is an HTTP request trap",
	Long: `trapd answers every HTTP request with "OK" while recording who sent it:
remote address, user agent, method, URI, and headers. Captured records go
to a local file, a remote collection endpoint, or stdout.

Point abandoned domains, suspicious redirects, or scanner bait at it and
read the capture log later. Configuration can be provided via flags,
TRAPD_* environment variables, or a configuration file (trapd.yaml in the
working directory by default).`,
	// No Run function here means 'trapd' with no args will print help text by default.
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opsURL, "ops-url", "", "Operational API base URL (default: http://localhost:4181)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
