package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gettrapd/trapd/pkg/asn"
	"github.com/gettrapd/trapd/pkg/logging"
)

var (
	asnDest  string
	asnCache string
)

var asnCmd = &cobra.Command{
	Use:   "asn <ASN>...",
	Short: "Export announced IP prefixes for autonomous systems",
	Long: `Export the announced IP prefixes of one or more autonomous systems
as plain-text block lists, one <ASN>.txt file per ASN with one prefix
per line.

Prefixes are merged from BGPView, RIPEstat and bgp.tools. The bgp.tools
full table is cached locally for 24 hours. A source that fails is
skipped with a warning; the export succeeds as long as the remaining
sources answer.

Useful for turning remote IPs captured by trapd into firewall block
lists covering the whole originating network.`,
	Example: `  # Export prefixes for a single ASN into the current directory
  trapd asn AS62419

  # Bare numbers work too; write the lists somewhere else
  trapd asn 62419 13335 --dest ./blocklists`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runASN(cmd.Context(), args, asnDest, asnCache)
	},
}

func init() {
	rootCmd.AddCommand(asnCmd)
	asnCmd.Flags().StringVarP(&asnDest, "dest", "d", ".", "Destination directory for <ASN>.txt files")
	asnCmd.Flags().StringVar(&asnCache, "cache", "", "bgp.tools table cache file (default: "+asn.DefaultCacheFile+")")
}

func runASN(ctx context.Context, args []string, dest, cache string) error {
	// Source warnings go to stderr; the per-ASN summary is printed below.
	log := logging.New(logging.Config{Level: logging.LevelWarn, Format: logging.FormatText, Output: os.Stderr})

	opts := []asn.Option{asn.WithLogger(log)}
	if cache != "" {
		opts = append(opts, asn.WithCachePath(cache))
	}
	client := asn.NewClient(opts...)

	results, err := client.Export(ctx, args, dest)
	for _, res := range results {
		fmt.Printf("%s: %d prefixes -> %s\n", res.ASN, res.Count, res.Path)
	}
	return err
}
