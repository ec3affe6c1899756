package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultGrades returns the grade symbols accepted out of the box:
// letter grades with +/- modifiers plus the common administrative
// symbols (pass/no-pass, credit/no-credit, withdrawal, incomplete,
// in-progress, audit, satisfactory/unsatisfactory).
func DefaultGrades() []string {
	var grades []string
	for _, letter := range []string{"A", "B", "C", "D", "F"} {
		grades = append(grades, letter, letter+"+", letter+"-")
	}
	return append(grades, "P", "NP", "CR", "NC", "W", "I", "IP", "AU", "S", "U")
}

// RecordValidationError reports the domain-rule failures of a single
// record. It only ever downgrades the record's status; it is never
// returned up the pipeline.
type RecordValidationError struct {
	Page     int
	Row      int
	Problems []string
}

func (e *RecordValidationError) Error() string {
	return fmt.Sprintf("record at page %d row %d failed validation: %s",
		e.Page, e.Row, strings.Join(e.Problems, "; "))
}

// validator applies the configured credit range and grade symbol set.
type validator struct {
	minCredits decimal.Decimal
	maxCredits decimal.Decimal
	grades     map[string]bool
}

func newValidator(cfg Config) *validator {
	grades := cfg.Grades
	if len(grades) == 0 {
		grades = DefaultGrades()
	}
	set := make(map[string]bool, len(grades))
	for _, g := range grades {
		set[strings.ToUpper(strings.TrimSpace(g))] = true
	}

	maxCredits := decimal.NewFromFloat(cfg.MaxCredits)
	if cfg.MaxCredits <= 0 {
		maxCredits = decimal.NewFromInt(defaultMaxCredits)
	}

	return &validator{
		minCredits: decimal.NewFromFloat(cfg.MinCredits),
		maxCredits: maxCredits,
		grades:     set,
	}
}

func (v *validator) checkCredits(d decimal.Decimal) error {
	if d.LessThan(v.minCredits) || d.GreaterThan(v.maxCredits) {
		return fmt.Errorf("credits %s outside range [%s, %s]", d, v.minCredits, v.maxCredits)
	}
	return nil
}

func (v *validator) checkGrade(g string) error {
	if !v.isGrade(g) {
		return fmt.Errorf("unknown grade symbol %q", g)
	}
	return nil
}

// isGrade reports whether the token is a configured grade symbol.
func (v *validator) isGrade(s string) bool {
	return v.grades[strings.ToUpper(s)]
}

// creditsShape limits credit candidates to one or two integer digits
// with an optional fraction, which keeps years and course numbers from
// parsing as credit values.
var creditsShape = regexp.MustCompile(`^\d{1,2}(\.\d{1,2})?$`)

// parseCredits parses a token as a credit value. Letter-for-digit OCR
// confusions are repaired before giving up; the repaired return lets
// the caller discount the record's confidence.
func parseCredits(token string) (credits decimal.Decimal, repaired, ok bool) {
	t := strings.ReplaceAll(strings.TrimSpace(token), ",", ".")

	if creditsShape.MatchString(t) {
		if d, err := decimal.NewFromString(t); err == nil {
			return d, false, true
		}
	}

	rt, rep := repairNumeric(t)
	if rep && creditsShape.MatchString(rt) {
		if d, err := decimal.NewFromString(rt); err == nil {
			return d, true, true
		}
	}

	return decimal.Decimal{}, false, false
}
