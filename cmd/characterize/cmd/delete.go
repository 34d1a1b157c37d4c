package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/characterize/pkg/store"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored report",
	Long: `Delete a report from the report store.

Example:
  characterize delete 2QZxLNkM5kRLw8Kh1CrFTIuqPjW`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := store.ParseID(args[0])
		if err != nil {
			return err
		}
		reports, err := openStore(appConfig)
		if err != nil {
			return err
		}
		defer reports.Close()

		if err := reports.Delete(id); err != nil {
			return fmt.Errorf("error deleting report: %w", err)
		}
		cmd.Printf("Deleted report %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
