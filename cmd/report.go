package main

import (
	"context"
	"errors"
	"fmt"

	"covidanalyzer/pkg/domain"
	"covidanalyzer/pkg/export"
	"covidanalyzer/pkg/logger"
	"covidanalyzer/pkg/report"

	"go.uber.org/zap"
)

// report prints the region totals of the requested window and exports them
// when --excel is set. Exporting an empty result only logs a warning.
func (a *app) report(ctx context.Context) error {
	clk, loc, err := newClock(a.cfg)
	if err != nil {
		return err
	}

	stopTracing, err := setupTracing(a.cfg)
	if err != nil {
		return err
	}
	defer stopTracing(context.WithoutCancel(ctx))

	window, err := domain.ParseDateWindow(a.dateStart, a.dateEnd, domain.DateOf(clk.Now()))
	if err != nil {
		return err
	}

	res, err := newAnalyzer(a.cfg, clk, loc, nil).RegionTotals(ctx, window)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "region totals computed",
		zap.Stringer("window", window),
		zap.Int("regions", len(res.Regions)),
		zap.Time("loaded_at", res.LoadedAt),
		zap.Uint64("checksum", res.Checksum))

	if err := report.Print(a.out, window, res.Regions); err != nil {
		return fmt.Errorf("could not print report: %w", err)
	}

	if !a.excel {
		return nil
	}

	path := a.excelOutput
	if path == "" {
		path = a.cfg.Export.Output
	}
	if path == "" {
		path = export.DefaultFilename(window.End)
	}

	err = export.Excel(path, res.Regions)
	switch {
	case errors.Is(err, export.ErrNoData):
		logger.Warn(ctx, "no data available, nothing exported", zap.Stringer("window", window))
		return nil
	case err != nil:
		return fmt.Errorf("could not export to excel: %w", err)
	}

	logger.Info(ctx, "data exported", zap.String("path", path))
	_, err = fmt.Fprintf(a.out, "Data exported to %s\n", path)

	return err
}
