// Package main provides the CLI entrypoint of the COVID-19 regional case analyzer.
// It loads configuration and logging, then either prints the region totals of a
// date window (optionally exporting them to a spreadsheet) or serves them over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	_ "time/tzdata"

	"covidanalyzer/internal/config"
	"covidanalyzer/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds the parsed flags and the configuration shared by all commands.
type app struct {
	configPath  string
	dateStart   string
	dateEnd     string
	excel       bool
	excelOutput string
	server      bool
	file        string

	cfg *config.Config
	out io.Writer
}

// setup loads .env, the config file and the logger. The --file flag overrides
// the configured source.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not load .env file: %w", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.file != "" {
		cfg.Source.File = a.file
	}

	var opts []logger.Option
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevel(cfg.LogLevel))
	}
	logger.Setup(cfg.Environment, opts...)

	a.cfg = cfg
	a.out = cmd.OutOrStdout()

	return nil
}

func rootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covid-analyzer",
		Short: "Per-region COVID-19 case totals over a date window",
		Long: "Loads the daily regional COVID-19 dataset, sums the cases of every region between " +
			"--date_start and --date_end (both default to today) and prints them, exports them to " +
			"a spreadsheet with --excel, or serves them over HTTP with --server.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.server {
				return a.serve(cmd.Context())
			}

			return a.report(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.yml", "Config File Path")
	cmd.PersistentFlags().StringVar(&a.file, "file", "", "Local JSON file to read instead of the remote dataset")

	cmd.Flags().StringVar(&a.dateStart, "date_start", "", "First day of the window, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&a.dateEnd, "date_end", "", "Last day of the window, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&a.excel, "excel", false, "Export the totals to a spreadsheet")
	cmd.Flags().StringVar(&a.excelOutput, "excel-output", "",
		"Spreadsheet path (default covid19_italy_regions_<date_end YYYYMMDD>.xlsx)")
	cmd.Flags().BoolVar(&a.server, "server", false, "Start the HTTP server instead of printing a report")

	cmd.AddCommand(serveCommand(a))

	return cmd
}

// main sets up the root Cobra command and executes the CLI.
func main() {
	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			logger.Sync()

			panic(p)
		}
	}()

	err := rootCommand(&app{}).ExecuteContext(ctx)
	if err != nil {
		logger.Error(ctx, "command failed", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
