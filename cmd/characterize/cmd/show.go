package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/characterize/pkg/config"
	"github.com/ssargent/characterize/pkg/report"
	"github.com/ssargent/characterize/pkg/store"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored report",
	Long: `Print a report saved with 'characterize run --store'.

Example:
  characterize show 2QZxLNkM5kRLw8Kh1CrFTIuqPjW`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		enc, err := report.ParseEncoding(format)
		if err != nil {
			return err
		}
		return showReport(cmd.OutOrStdout(), appConfig, args[0], enc)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringP("format", "f", "json", "Report encoding (json, cbor)")
}

func showReport(out io.Writer, cfg *config.Config, rawID string, enc report.Encoding) error {
	id, err := store.ParseID(rawID)
	if err != nil {
		return err
	}
	reports, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer reports.Close()

	rep, err := reports.Get(id)
	if err != nil {
		return fmt.Errorf("error getting report: %w", err)
	}
	return report.Write(out, rep, enc)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	c, err := requireContainer()
	if err != nil {
		return nil, err
	}
	reports, err := c.OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}
	return reports, nil
}
