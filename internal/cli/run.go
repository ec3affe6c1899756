package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tsawler/transcripta"
	"github.com/tsawler/transcripta/model"
	"github.com/tsawler/transcripta/pipeline"
	"github.com/tsawler/transcripta/report"
)

// Run is the high-level CLI entrypoint, suitable for black-box tests.
// It takes the argument slice excluding argv[0] and returns the exit
// code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	inv, err := ParseInvocation(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(stderr, "transcripta: %v\n", err)
		return ExitFatal
	}
	return Execute(ctx, inv, stdout, stderr)
}

// Execute runs a resolved invocation and maps the outcome to an exit
// code.
func Execute(ctx context.Context, inv *Invocation, stdout, stderr io.Writer) int {
	level := slog.LevelInfo
	if inv.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if inv.DocTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.DocTimeout)
		defer cancel()
	}

	started := time.Now()
	result, err := transcripta.Open(inv.Input).
		WithConfig(inv.pipelineConfig(logger)).
		Process(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "transcripta: %v\n", err)
		return ExitFatal
	}

	if inv.DumpRows {
		writeRowDump(stdout, result, inv.Pages, inv.Grep)
	} else if err := writeReport(stdout, inv, started, result); err != nil {
		fmt.Fprintf(stderr, "transcripta: %v\n", err)
		return ExitFatal
	}

	logger.Info("run complete",
		"source", inv.Input,
		"status", result.Status(),
		"records", result.RecordCount(),
		"warnings", len(result.Warnings),
		"confidence", result.Confidence)

	switch result.Status() {
	case model.DocSuccess:
		return ExitSuccess
	case model.DocPartial:
		return ExitPartial
	default:
		return ExitFatal
	}
}

// pipelineConfig maps the invocation onto the processing pipeline.
func (inv *Invocation) pipelineConfig(logger *slog.Logger) pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.DPI = inv.DPI
	cfg.Engines = inv.Engines
	cfg.Languages = inv.Languages
	cfg.MinConfidence = inv.MinConfidence
	cfg.PageTimeout = inv.PageTimeout
	cfg.Workers = inv.Workers
	cfg.PreferOCR = inv.PreferOCR
	cfg.Audit = inv.Audit
	cfg.DumpRows = inv.DumpRows
	cfg.Extract.Subjects = inv.Subjects
	cfg.Logger = logger
	return cfg
}

func writeReport(stdout io.Writer, inv *Invocation, started time.Time, result *model.TranscriptResult) error {
	format, err := report.ParseFormat(inv.Format)
	if err != nil {
		return err
	}
	rep := report.New(result, report.NewMeta(inv.Input, started, result))

	w := stdout
	if inv.Out != "" && inv.Out != "-" {
		f, err := os.Create(inv.Out)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return rep.Write(w, format)
}

// writeRowDump prints reconstructed rows for rule tuning: page and row
// index, vertical extent, joined text. Pages are shown 1-based to
// match the -pages flag.
func writeRowDump(stdout io.Writer, result *model.TranscriptResult, pages PageRange, grep string) {
	for _, page := range result.Pages {
		if !pages.Matches(page.Index) {
			continue
		}
		for _, row := range page.RowDump {
			if grep != "" && !strings.Contains(row.Text, grep) {
				continue
			}
			fmt.Fprintf(stdout, "page %d row %d [y %.0f-%.0f] %s\n",
				page.Index+1, row.Index, row.Top, row.Bottom, row.Text)
		}
	}
}
