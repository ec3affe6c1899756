// Package cli implements the transcripta command line front end: flag
// parsing, configuration merge, report writing, and exit codes.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tsawler/transcripta/config"
	"github.com/tsawler/transcripta/pipeline"
	"github.com/tsawler/transcripta/raster"
	"github.com/tsawler/transcripta/report"
)

// Exit codes. Partial covers any run that produced output alongside
// warnings, degraded pages, or failed pages.
const (
	ExitSuccess = 0
	ExitPartial = 1
	ExitFatal   = 2
)

// Invocation is a fully resolved run request: flags merged over the
// configuration file and environment, input path attached.
type Invocation struct {
	Input string

	Out    string
	Format string

	Engines       []string
	Languages     []string
	Subjects      []string
	DPI           int
	MinConfidence float64
	PageTimeout   time.Duration
	DocTimeout    time.Duration
	Workers       int
	PreferOCR     bool
	Audit         bool

	DumpRows bool
	Pages    PageRange
	Grep     string

	Verbose bool
}

// ParseInvocation canonicalizes the argument list. Precedence is
// config file, then TRANSCRIPTA_* environment, then explicit flags.
func ParseInvocation(args []string, stderr io.Writer) (*Invocation, error) {
	fs := flag.NewFlagSet("transcripta", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: transcripta [flags] <input file>\n\n")
		fmt.Fprintf(stderr, "Extract course records from a scanned transcript (PDF or image).\n\n")
		fs.PrintDefaults()
	}

	var (
		out           = fs.String("out", "-", "Report destination path, - for stdout")
		formatFlag    = fs.String("format", "json", "Report format: json or csv")
		engines       = fs.String("engines", strings.Join(pipeline.DefaultEngines(), ","), "Comma separated OCR engine chain, tried in order")
		languages     = fs.String("languages", "", "Comma separated recognition languages (default engine's default)")
		subjects      = fs.String("subjects", "", "Comma separated subject keys or prefixes to extract (default all)")
		dpi           = fs.Int("dpi", raster.DefaultDPI, "Rasterization resolution")
		minConfidence = fs.Float64("min-confidence", pipeline.DefaultMinConfidence, "Mean confidence below which the next engine is tried")
		pageTimeout   = fs.Duration("page-timeout", 0, "Timeout per engine attempt per page (0 = none)")
		docTimeout    = fs.Duration("doc-timeout", 0, "Timeout for the whole document (0 = none)")
		workers       = fs.Int("workers", 0, "Concurrent page workers (0 = number of CPUs)")
		preferOCR     = fs.Bool("prefer-ocr", false, "Always OCR PDF pages, even with an embedded text layer")
		audit         = fs.Bool("audit", false, "Include raw per-page OCR fragments in the report")
		dumpRows      = fs.Bool("dump-rows", false, "Print reconstructed rows instead of writing a report")
		pagesFlag     = fs.String("pages", "", "Page range for -dump-rows, 1-based (e.g. 2 or 2-4)")
		grep          = fs.String("grep", "", "Substring filter for -dump-rows output")
		configPath    = fs.String("config", "", "YAML configuration file")
		verbose       = fs.Bool("v", false, "Debug logging")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one input file, got %d arguments", fs.NArg())
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	inv := &Invocation{
		Input:         fs.Arg(0),
		Out:           *out,
		Format:        *formatFlag,
		Engines:       config.SplitList(*engines),
		Languages:     config.SplitList(*languages),
		Subjects:      config.SplitList(*subjects),
		DPI:           *dpi,
		MinConfidence: *minConfidence,
		PageTimeout:   *pageTimeout,
		DocTimeout:    *docTimeout,
		Workers:       *workers,
		PreferOCR:     *preferOCR,
		Audit:         *audit,
		DumpRows:      *dumpRows,
		Grep:          *grep,
		Verbose:       *verbose,
	}

	pages, err := ParsePageRange(*pagesFlag)
	if err != nil {
		return nil, err
	}
	inv.Pages = pages

	file, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	inv.applyFile(file, explicit)

	if _, err := report.ParseFormat(inv.Format); err != nil {
		return nil, err
	}
	return inv, nil
}

// applyFile fills in everything the command line left at its default
// from the file and environment layer.
func (inv *Invocation) applyFile(file *config.File, explicit map[string]bool) {
	if !explicit["out"] && file.Out != "" {
		inv.Out = file.Out
	}
	if !explicit["format"] && file.Format != "" {
		inv.Format = file.Format
	}
	if !explicit["engines"] && len(file.Engines) > 0 {
		inv.Engines = file.Engines
	}
	if !explicit["languages"] && len(file.Languages) > 0 {
		inv.Languages = file.Languages
	}
	if !explicit["subjects"] && len(file.Subjects) > 0 {
		inv.Subjects = file.Subjects
	}
	if !explicit["dpi"] && file.DPI > 0 {
		inv.DPI = file.DPI
	}
	if !explicit["min-confidence"] && file.MinConfidence > 0 {
		inv.MinConfidence = file.MinConfidence
	}
	if !explicit["page-timeout"] && file.PageTimeout > 0 {
		inv.PageTimeout = file.PageTimeout.Std()
	}
	if !explicit["doc-timeout"] && file.DocTimeout > 0 {
		inv.DocTimeout = file.DocTimeout.Std()
	}
	if !explicit["workers"] && file.Workers > 0 {
		inv.Workers = file.Workers
	}
	if !explicit["prefer-ocr"] && file.PreferOCR {
		inv.PreferOCR = true
	}
	if !explicit["audit"] && file.Audit {
		inv.Audit = true
	}
}

// PageRange is a 1-based inclusive page selection. The zero value
// matches every page.
type PageRange struct {
	Start int
	End   int
}

// ParsePageRange parses "", "3", or "2-5".
func ParsePageRange(s string) (PageRange, error) {
	if s == "" {
		return PageRange{}, nil
	}

	parse := func(part string) (int, error) {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return 0, fmt.Errorf("invalid page range %q: pages are 1-based numbers", s)
		}
		return n, nil
	}

	start, end := s, s
	if before, after, found := strings.Cut(s, "-"); found {
		start, end = before, after
	}

	from, err := parse(start)
	if err != nil {
		return PageRange{}, err
	}
	to, err := parse(end)
	if err != nil {
		return PageRange{}, err
	}
	if to < from {
		return PageRange{}, fmt.Errorf("invalid page range %q: end before start", s)
	}
	return PageRange{Start: from, End: to}, nil
}

// Matches reports whether the 0-based page index falls in the range.
func (r PageRange) Matches(pageIndex int) bool {
	if r.Start == 0 {
		return true
	}
	page := pageIndex + 1
	return page >= r.Start && page <= r.End
}
