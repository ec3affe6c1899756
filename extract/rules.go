package extract

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tsawler/transcripta/layout"
)

// Match strength by rule shape. Exact means the whole line parsed
// against the expected course-row shape; partial means the shape held
// but something was off-position; positional means fields were picked
// purely by column membership.
const (
	strengthExact      = 1.0
	strengthPartial    = 0.75
	strengthPositional = 0.55
)

// fieldMatch is one rule's parse of a row.
type fieldMatch struct {
	code       string
	title      string
	credits    decimal.Decimal
	hasCredits bool
	grade      string
	term       string
	strength   float64
	repaired   bool
}

// rowContext carries state earlier rows establish for later ones: the
// running term heading and the column layout learned from a header row.
type rowContext struct {
	term   string
	header *headerLayout
}

// Term headings come in a handful of shapes. They set context for the
// records that follow and never produce a record themselves.
var termPatterns = []*regexp.Regexp{
	// Fall 2021, SPRING SEMESTER 2022, Winter Term 2020
	regexp.MustCompile(`(?i)^(fall|spring|summer|winter|autumn)\s+(?:(?:term|semester|quarter)\s+)?\d{4}$`),
	// 2021-22 Term 1, 2021/2022 Semester 2
	regexp.MustCompile(`(?i)^\d{4}\s*[-/]\s*\d{2,4}\s+(?:term|semester|quarter)\s+\d$`),
	// Term 1, 2021
	regexp.MustCompile(`(?i)^(?:term|semester|quarter)\s+\d[\s,]+\d{4}$`),
}

// matchTerm reports whether the row is a term heading and returns its
// canonical form.
func matchTerm(text string) (string, bool) {
	t := strings.TrimSpace(text)
	for _, p := range termPatterns {
		if p.MatchString(t) {
			return canonicalTerm(t), true
		}
	}
	return "", false
}

// canonicalTerm normalizes heading case, so FALL 2021 and Fall 2021
// produce the same term value.
func canonicalTerm(t string) string {
	fields := strings.Fields(t)
	for i, f := range fields {
		if f == strings.ToUpper(f) && len(f) > 1 && !strings.ContainsAny(f, "0123456789") {
			fields[i] = f[:1] + strings.ToLower(f[1:])
		}
	}
	return strings.Join(fields, " ")
}

// headerFieldFor maps a header cell token to the record field it
// labels, or "" when the token is not a recognized label.
func headerFieldFor(token string) string {
	switch token {
	case "course", "code", "subject", "courseno", "course#":
		return "code"
	case "title", "description", "name", "coursetitle":
		return "title"
	case "credit", "credits", "hours", "units", "cr", "hrs", "cred":
		return "credits"
	case "grade", "grades", "mark", "result":
		return "grade"
	case "term", "semester", "session":
		return "term"
	}
	return ""
}

// headerBigram resolves two-word header cells, where the first word
// alone would mislabel the column (Course Title is a title column, not
// a code column).
func headerBigram(first, second string) string {
	if first != "course" && first != "credit" && first != "cr" {
		return ""
	}
	switch first + " " + second {
	case "course title", "course name", "course description":
		return "title"
	case "course code", "course no", "course number", "course #":
		return "code"
	case "credit hours", "cr hrs":
		return "credits"
	}
	return ""
}

// headerToken lowercases a header cell and strips punctuation noise.
func headerToken(s string) string {
	return strings.Trim(strings.ToLower(s), ".,:;()")
}

// headerField is one labeled column window.
type headerField struct {
	name  string
	left  float64
	right float64
}

// headerLayout maps record fields to column x-windows learned from a
// header row. Data rows below the header are split by these windows.
type headerLayout struct {
	fields []headerField
}

// matchHeader recognizes a column-header row. At least two distinct
// field labels are required, one of which must anchor the row shape
// (code or credits), otherwise prose mentioning "title" would count.
func matchHeader(row *layout.Row) *headerLayout {
	if row == nil || len(row.Fragments) < 2 {
		return nil
	}

	var cells []headerField
	frs := row.Fragments
	for i := 0; i < len(frs); i++ {
		token := headerToken(frs[i].Text)
		// Two-word labels only when the words sit in the same cell; a
		// column-width gap means separate headings.
		if i+1 < len(frs) {
			gap := frs[i+1].BBox.Left() - frs[i].BBox.Right()
			if gap <= 2*math.Max(frs[i].BBox.Height, 1) {
				if name := headerBigram(token, headerToken(frs[i+1].Text)); name != "" {
					cells = append(cells, headerField{name: name, left: frs[i].BBox.Left(), right: frs[i+1].BBox.Right()})
					i++
					continue
				}
			}
		}
		if name := headerFieldFor(token); name != "" {
			cells = append(cells, headerField{name: name, left: frs[i].BBox.Left(), right: frs[i].BBox.Right()})
		}
	}

	distinct := make(map[string]bool)
	for _, c := range cells {
		distinct[c.name] = true
	}
	if len(distinct) < 2 || (!distinct["code"] && !distinct["credits"]) {
		return nil
	}

	// Widen each cell into a window reaching halfway to its neighbors.
	windows := make([]headerField, len(cells))
	for i, c := range cells {
		w := c
		if i == 0 {
			w.left = math.Inf(-1)
		} else {
			w.left = (cells[i-1].right + c.left) / 2
		}
		if i == len(cells)-1 {
			w.right = math.Inf(1)
		} else {
			w.right = (c.right + cells[i+1].left) / 2
		}
		windows[i] = w
	}

	return &headerLayout{fields: windows}
}

// fieldsFor splits a data row's fragments into the header's column
// windows by center position and joins each column's text.
func (h *headerLayout) fieldsFor(row *layout.Row) map[string]string {
	parts := make(map[string][]string)
	for _, f := range row.Fragments {
		center := f.BBox.Center().X
		for _, w := range h.fields {
			if center >= w.left && center < w.right {
				parts[w.name] = append(parts[w.name], f.Text)
				break
			}
		}
	}

	fields := make(map[string]string, len(parts))
	for name, p := range parts {
		fields[name] = strings.Join(p, " ")
	}
	return fields
}

// matchFullLine parses the one-row-per-course shape: course code, then
// title, then credits and grade at the end of the line in either
// order.
func (e *Extractor) matchFullLine(text string) (*fieldMatch, bool) {
	loc := e.pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, false
	}

	code := canonicalCode(text[loc[2]:loc[3]], text[loc[4]:loc[5]])
	head := strings.TrimSpace(text[:loc[0]])
	tokens := strings.Fields(strings.TrimSpace(text[loc[1]:]))
	if len(tokens) < 3 {
		return nil, false
	}

	last := tokens[len(tokens)-1]
	prev := tokens[len(tokens)-2]
	title := strings.Join(tokens[:len(tokens)-2], " ")

	m := fieldMatch{code: code, title: title, strength: strengthExact}
	if head != "" {
		// The code was not at the start of the row.
		m.strength = strengthPartial
	}

	// Credits before grade is the common print order.
	if e.validator.isGrade(last) {
		if credits, repaired, ok := parseCredits(prev); ok {
			m.grade = strings.ToUpper(last)
			m.credits = credits
			m.hasCredits = true
			m.repaired = repaired
			return &m, true
		}
	}
	// Grade before credits.
	if e.validator.isGrade(prev) {
		if credits, repaired, ok := parseCredits(last); ok {
			m.grade = strings.ToUpper(prev)
			m.credits = credits
			m.hasCredits = true
			m.repaired = repaired
			return &m, true
		}
	}

	return nil, false
}

// matchNoGrade parses the in-progress course shape: code and title
// with credits at the end and no grade yet.
func (e *Extractor) matchNoGrade(text string) (*fieldMatch, bool) {
	loc := e.pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, false
	}

	code := canonicalCode(text[loc[2]:loc[3]], text[loc[4]:loc[5]])
	head := strings.TrimSpace(text[:loc[0]])
	tokens := strings.Fields(strings.TrimSpace(text[loc[1]:]))
	if len(tokens) < 2 {
		return nil, false
	}

	credits, repaired, ok := parseCredits(tokens[len(tokens)-1])
	if !ok {
		return nil, false
	}

	m := fieldMatch{
		code:       code,
		title:      strings.Join(tokens[:len(tokens)-1], " "),
		credits:    credits,
		hasCredits: true,
		repaired:   repaired,
		strength:   strengthPartial,
	}
	if head != "" {
		m.strength = strengthPositional
	}
	return &m, true
}

// matchPositional picks fields by column membership when a header row
// established the column windows. Weakest rule, last resort.
func (e *Extractor) matchPositional(row *layout.Row, ctx *rowContext) (*fieldMatch, bool) {
	if ctx.header == nil || row == nil {
		return nil, false
	}

	fields := ctx.header.fieldsFor(row)
	codeText := normalizeText(fields["code"])
	if codeText == "" {
		return nil, false
	}
	loc := e.pattern.FindStringSubmatchIndex(codeText)
	if loc == nil {
		return nil, false
	}

	m := fieldMatch{
		code:     canonicalCode(codeText[loc[2]:loc[3]], codeText[loc[4]:loc[5]]),
		title:    strings.TrimSpace(fields["title"]),
		term:     strings.TrimSpace(fields["term"]),
		strength: strengthPositional,
	}

	if creditsText := strings.Fields(fields["credits"]); len(creditsText) > 0 {
		if credits, repaired, ok := parseCredits(creditsText[0]); ok {
			m.credits = credits
			m.hasCredits = true
			m.repaired = repaired
		}
	}
	if gradeText := strings.Fields(fields["grade"]); len(gradeText) > 0 {
		m.grade = strings.ToUpper(gradeText[0])
	}

	// A bare code with neither credits nor grade is not a course row.
	if !m.hasCredits && m.grade == "" {
		return nil, false
	}
	return &m, true
}
