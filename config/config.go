// Package config loads CLI configuration from a YAML file and the
// TRANSCRIPTA_* environment. Precedence is file, then environment,
// then explicit flags; the flag layer lives with the CLI, this package
// produces the file-plus-environment merge underneath it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\", got %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// File mirrors the CLI flags. Zero values mean "not set"; the CLI
// keeps its own defaults for anything the file and environment leave
// blank.
type File struct {
	Out           string   `yaml:"out"`
	Format        string   `yaml:"format"`
	Engines       []string `yaml:"engines"`
	Languages     []string `yaml:"languages"`
	DPI           int      `yaml:"dpi"`
	MinConfidence float64  `yaml:"min_confidence"`
	PageTimeout   Duration `yaml:"page_timeout"`
	DocTimeout    Duration `yaml:"doc_timeout"`
	Workers       int      `yaml:"workers"`
	Subjects      []string `yaml:"subjects"`
	PreferOCR     bool     `yaml:"prefer_ocr"`
	Audit         bool     `yaml:"audit"`
}

// Load reads the YAML file at path, applies TRANSCRIPTA_* environment
// overrides, and validates the result. An empty path skips the file
// and loads from the environment alone.
func Load(path string) (*File, error) {
	var cfg File
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides set fields from TRANSCRIPTA_* environment
// variables. List variables are comma separated.
func (f *File) ApplyEnv() error {
	if v, ok := os.LookupEnv("TRANSCRIPTA_OUT"); ok {
		f.Out = v
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_FORMAT"); ok {
		f.Format = v
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_ENGINES"); ok {
		f.Engines = SplitList(v)
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_LANGUAGES"); ok {
		f.Languages = SplitList(v)
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_SUBJECTS"); ok {
		f.Subjects = SplitList(v)
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_DPI"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRANSCRIPTA_DPI: %w", err)
		}
		f.DPI = n
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRANSCRIPTA_WORKERS: %w", err)
		}
		f.Workers = n
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_MIN_CONFIDENCE"); ok {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRANSCRIPTA_MIN_CONFIDENCE: %w", err)
		}
		f.MinConfidence = n
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_PAGE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRANSCRIPTA_PAGE_TIMEOUT: %w", err)
		}
		f.PageTimeout = Duration(d)
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_DOC_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRANSCRIPTA_DOC_TIMEOUT: %w", err)
		}
		f.DocTimeout = Duration(d)
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_PREFER_OCR"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRANSCRIPTA_PREFER_OCR: %w", err)
		}
		f.PreferOCR = b
	}
	if v, ok := os.LookupEnv("TRANSCRIPTA_AUDIT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRANSCRIPTA_AUDIT: %w", err)
		}
		f.Audit = b
	}
	return nil
}

// Validate rejects values no layer above can repair.
func (f *File) Validate() error {
	switch f.Format {
	case "", "json", "csv":
	default:
		return fmt.Errorf("format must be json or csv, got %q", f.Format)
	}
	if f.DPI < 0 {
		return fmt.Errorf("dpi must be positive, got %d", f.DPI)
	}
	if f.MinConfidence < 0 || f.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1], got %g", f.MinConfidence)
	}
	if f.Workers < 0 {
		return fmt.Errorf("workers must be positive, got %d", f.Workers)
	}
	if f.PageTimeout < 0 || f.DocTimeout < 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// SplitList splits a comma separated value, trimming whitespace and
// dropping empty items. It returns nil for a blank input.
func SplitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
