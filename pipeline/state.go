package pipeline

import (
	"fmt"

	"github.com/tsawler/transcripta/layout"
	"github.com/tsawler/transcripta/model"
)

// state is a page's position in the processing lifecycle.
type state int

const (
	statePending state = iota
	stateRasterized
	stateRecognized
	stateReconstructed
	stateExtracted
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateRasterized:
		return "rasterized"
	case stateRecognized:
		return "recognized"
	case stateReconstructed:
		return "reconstructed"
	case stateExtracted:
		return "extracted"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists the legal moves. pending jumps straight to
// recognized when the embedded text layer serves the page, recognized
// falls back to rasterized when a low-confidence result sends the
// page to the next engine, and failed is reachable from any
// non-terminal state.
var transitions = map[state][]state{
	statePending:       {stateRasterized, stateRecognized, stateFailed},
	stateRasterized:    {stateRecognized, stateFailed},
	stateRecognized:    {stateReconstructed, stateRasterized, stateFailed},
	stateReconstructed: {stateExtracted, stateFailed},
	stateExtracted:     {stateDone, stateFailed},
	stateDone:          nil,
	stateFailed:        nil,
}

func canTransition(from, to state) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// PageState tracks one page through the pipeline. Pages are owned by
// exactly one worker at a time; nothing here is synchronized.
type PageState struct {
	Index int

	// TextSource names where the fragments came from: an engine name
	// or the embedded text layer.
	TextSource string

	Fragments []model.TextFragment
	Layout    *layout.RowLayout
	Records   []model.Record
	Warnings  []model.Warning

	Status model.PageStatus
	Err    error

	// Width and Height are the page dimensions in pixels at the
	// processing DPI.
	Width  float64
	Height float64

	state state
}

func newPageState(index int) *PageState {
	return &PageState{Index: index, state: statePending, Status: model.PageFailed}
}

// advance moves the page to the next state. An illegal move is a
// programming error and surfaces as a *FatalError.
func (p *PageState) advance(to state) error {
	if !canTransition(p.state, to) {
		return &FatalError{
			Op:  "transition",
			Err: fmt.Errorf("illegal page %d transition %s -> %s", p.Index, p.state, to),
		}
	}
	p.state = to
	return nil
}

// fail marks the page failed with its terminal error and the warning
// that will surface in the report.
func (p *PageState) fail(err error, warn model.Warning) {
	p.state = stateFailed
	p.Status = model.PageFailed
	p.Err = err
	p.Warnings = append(p.Warnings, warn)
}

// Document is one processing run over an input file.
type Document struct {
	Source string
	Pages  []*PageState
}

func newDocument(source string, pages int) *Document {
	d := &Document{Source: source, Pages: make([]*PageState, pages)}
	for i := range d.Pages {
		d.Pages[i] = newPageState(i)
	}
	return d
}

// AllFailed reports whether no page produced output, the only
// condition that aborts a run.
func (d *Document) AllFailed() bool {
	if len(d.Pages) == 0 {
		return true
	}
	for _, p := range d.Pages {
		if p.Status != model.PageFailed {
			return false
		}
	}
	return true
}
