package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/demomigrate"
	"github.com/tordrt/demomigrate/internal/db"
	"github.com/tordrt/demomigrate/internal/formatter"
	"github.com/tordrt/demomigrate/internal/migrate"
)

// unitKind describes one family of versioned units: migrations or seeds
type unitKind struct {
	use    string
	short  string
	plural string
	units  func() []migrate.Migration
	runner func(*db.Client, *demomigrate.Options) *migrate.Runner
	// targeted enables --to on up and down.
	targeted bool
}

func newUnitCmd(a *app, k unitKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   k.use,
		Short: k.short,
	}

	var upTo string
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending " + k.plural,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeClient(client)

			n, err := k.runner(client, a.options()).Up(cmd.Context(), k.units(), upTo)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "%d %s applied\n", n, k.plural)
			return nil
		},
	}

	var downOpts migrate.DownOptions
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the last applied " + strings.TrimSuffix(k.plural, "s"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeClient(client)

			n, err := k.runner(client, a.options()).Down(cmd.Context(), k.units(), downOpts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "%d %s reverted\n", n, k.plural)
			return nil
		},
	}
	downCmd.Flags().BoolVar(&downOpts.All, "all", false, "Revert every applied "+strings.TrimSuffix(k.plural, "s"))

	if k.targeted {
		upCmd.Flags().StringVar(&upTo, "to", "", "Stop after this version")
		downCmd.Flags().StringVar(&downOpts.To, "to", "", "Revert down to and including this version")
		downCmd.MarkFlagsMutuallyExclusive("to", "all")
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "List " + k.plural + " and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeClient(client)

			statuses, err := k.runner(client, a.options()).Status(cmd.Context(), k.units())
			if err != nil {
				return err
			}
			f, err := formatter.New(a.format, a.stdout)
			if err != nil {
				return err
			}
			return f.FormatStatus(k.plural, statuses)
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

func newDescribeCmd(a *app) *cobra.Command {
	var (
		tables     string
		exclude    string
		outputFile string
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the current database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outputDir != "" && outputFile != "" {
				return fmt.Errorf("cannot use both --output-dir and --output flags")
			}

			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeClient(client)

			s, err := demomigrate.Describe(cmd.Context(), client, &demomigrate.DescribeOptions{
				Tables:        parseTableList(tables),
				ExcludeTables: parseTableList(exclude),
			})
			if err != nil {
				return fmt.Errorf("failed to extract schema: %w", err)
			}

			out := &demomigrate.OutputOptions{Writer: a.stdout, OutputDir: outputDir, Format: a.format}
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() {
					if err := f.Close(); err != nil {
						a.logger.Warn("failed to close output file", "error", err)
					}
				}()
				out.Writer = f
			}

			if err := demomigrate.FormatSchema(s, out); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	cmd.Flags().StringVarP(&exclude, "exclude", "x", "", "Tables to leave out (comma-separated)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for one file per table")

	return cmd
}

// parseTableList splits a comma separated list, dropping blanks
func parseTableList(list string) []string {
	var out []string
	for _, t := range strings.Split(list, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
