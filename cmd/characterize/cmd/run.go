/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/characterize/pkg/config"
	"github.com/ssargent/characterize/pkg/report"
	"github.com/ssargent/characterize/pkg/source"
	"github.com/ssargent/characterize/pkg/store"
)

// ErrInvalidSource is returned in strict mode when a report's root is invalid.
var ErrInvalidSource = errors.New("source is invalid")

type runOptions struct {
	Encoding report.Encoding
	Locale   string
	Store    bool
	Strict   bool
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <file>...",
	Short: "Characterize files and print their reports",
	Long: `Characterize each file and write its report to standard output.

Examples:
  characterize run archive.gz
  characterize run --format cbor --store logs/*.gz
  characterize run --digest blake3,xxh64 --strict backup.gz`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		locale, _ := cmd.Flags().GetString("locale")
		save, _ := cmd.Flags().GetBool("store")
		strict, _ := cmd.Flags().GetBool("strict")

		enc, err := report.ParseEncoding(format)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("digest") {
			appConfig.Characterize.Digests, _ = cmd.Flags().GetStringSlice("digest")
		}
		if cmd.Flags().Changed("workers") {
			appConfig.Characterize.Workers, _ = cmd.Flags().GetInt("workers")
		}

		return characterizeFiles(cmd.Context(), cmd.OutOrStdout(), appConfig, args, runOptions{
			Encoding: enc,
			Locale:   locale,
			Store:    save,
			Strict:   strict,
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("format", "f", "json", "Report encoding (json, cbor)")
	runCmd.Flags().String("locale", report.DefaultLocale, "Locale for message text")
	runCmd.Flags().Bool("store", false, "Save each report in the report store")
	runCmd.Flags().Bool("strict", false, "Exit with an error if any file is invalid")
	runCmd.Flags().StringSlice("digest", nil, "Digests to compute per source (blake3, xxh64)")
	runCmd.Flags().Int("workers", 1, "Members characterized in parallel per stream")
}

// characterizeFiles runs every path through one engine and writes the
// reports to out in order.
func characterizeFiles(ctx context.Context, out io.Writer, cfg *config.Config, paths []string, opts runOptions) error {
	c, err := requireContainer()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	engine, err := c.NewEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	var reports *store.Store
	if opts.Store {
		reports, err = c.OpenStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open report store: %w", err)
		}
		defer reports.Close()
	}

	invalid := 0
	for _, path := range paths {
		res, err := engine.Run(ctx, path)
		if err != nil {
			return fmt.Errorf("characterize %s: %w", path, err)
		}
		rep := res.Report(report.WithLocale(opts.Locale))
		if err := res.Close(); err != nil && logger != nil {
			logger.Warn("failed to release temporary files", "source", path, "error", err)
		}

		if reports != nil {
			if _, err := reports.Put(rep); err != nil {
				return fmt.Errorf("store report for %s: %w", path, err)
			}
		}
		if err := report.Write(out, rep, opts.Encoding); err != nil {
			return err
		}
		if rep.Validity == source.False.String() {
			invalid++
		}
	}

	if opts.Strict && invalid > 0 {
		return fmt.Errorf("%d of %d files: %w", invalid, len(paths), ErrInvalidSource)
	}
	return nil
}
