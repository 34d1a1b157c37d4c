package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/characterize/pkg/config"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listReports(cmd.OutOrStdout(), appConfig)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func listReports(out io.Writer, cfg *config.Config) error {
	reports, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer reports.Close()

	summaries, err := reports.List()
	if err != nil {
		return fmt.Errorf("error listing reports: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tVALIDITY\tSOURCES\tERRORS\tPATH")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.CreatedAt.Format(time.RFC3339), s.Validity, s.Sources, s.Errors, s.Path)
	}
	return tw.Flush()
}
