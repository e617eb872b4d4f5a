package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tordrt/demomigrate"
	"github.com/tordrt/demomigrate/internal/config"
	"github.com/tordrt/demomigrate/internal/db"
	"github.com/tordrt/demomigrate/internal/formatter"
	"github.com/tordrt/demomigrate/internal/logging"
)

// app holds the state shared by all subcommands
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	stderrTTY bool
	timeNow   func() time.Time

	overrides  config.Overrides
	format     string
	schemaName string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "demomigrate",
		Short: "Run the users schema migrations and demo seed",
		Long: `demomigrate applies and reverts the users schema migrations and the demo
user seed against PostgreSQL, MySQL or SQLite, and describes the resulting schema.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.overrides.DatabaseURL, "db-url", "", "Database URL (sqlite://, postgres://, mysql://)")
	flags.StringVarP(&a.overrides.ConfigFile, "config", "c", "", "YAML config file with per-environment settings")
	flags.StringVarP(&a.overrides.Environment, "env", "e", "", "Config file environment (default: development)")
	flags.StringVar(&a.overrides.LogLevel, "log-level", "", "Log level: debug, info, warn or error (default: info)")
	flags.BoolVar(&a.overrides.NoTransaction, "no-transaction", false, "Don't wrap each unit in a transaction")
	flags.StringVarP(&a.format, "format", "f", formatter.FormatText, "Output format: text or markdown")
	flags.StringVarP(&a.schemaName, "schema", "s", "", "PostgreSQL schema name (default: public)")

	rootCmd.AddCommand(
		newUnitCmd(a, unitKind{
			use:      "migrate",
			short:    "Apply, revert or list schema migrations",
			plural:   "migrations",
			units:    demomigrate.Migrations,
			runner:   demomigrate.NewMigrationRunner,
			targeted: true,
		}),
		newUnitCmd(a, unitKind{
			use:    "seed",
			short:  "Apply, revert or list data seeds",
			plural: "seeds",
			units:  demomigrate.Seeds,
			runner: demomigrate.NewSeedRunner,
		}),
		newDescribeCmd(a),
	)

	return rootCmd
}

// setup resolves configuration and the logger before any subcommand runs
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.overrides)
	if err != nil {
		return err
	}
	lvl, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if _, err := formatter.New(a.format, a.stdout); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.New(a.stderr, a.stderrTTY, lvl)
	a.logger.Debug("configuration loaded", "env", cfg.Environment, "config_file", cfg.ConfigFile)
	return nil
}

func (a *app) options() *demomigrate.Options {
	return &demomigrate.Options{
		SchemaName:    a.schemaName,
		Logger:        a.logger,
		NoTransaction: a.cfg.NoTransaction,
		TimeNow:       a.timeNow,
	}
}

func (a *app) connect(ctx context.Context) (*db.Client, error) {
	client, err := demomigrate.Connect(ctx, a.cfg.DatabaseURL, a.options())
	if err != nil {
		return nil, err
	}
	a.logger.Debug("connected", "dialect", client.Dialect().Name())
	return client, nil
}

func (a *app) closeClient(client *db.Client) {
	if err := client.Close(); err != nil {
		a.logger.Warn("failed to close database connection", "error", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdout:    colorable.NewColorable(os.Stdout),
		stderr:    colorable.NewColorable(os.Stderr),
		stderrTTY: isatty.IsTerminal(os.Stderr.Fd()),
		timeNow:   time.Now,
	}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(a.stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
