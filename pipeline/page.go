package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/tsawler/transcripta/model"
	"github.com/tsawler/transcripta/ocr"
	"github.com/tsawler/transcripta/pdftext"
	"github.com/tsawler/transcripta/raster"
)

// processPage drives one page through the state machine. The returned
// error is non-nil only for programming errors; page-scoped failures
// are recorded on the page and never propagate.
func (p *Pipeline) processPage(ctx context.Context, rdoc raster.Document, text *pdftext.Document, page *PageState, chain []*ocr.Lazy) error {
	if err := ctx.Err(); err != nil {
		page.fail(err, model.Warning{
			Kind:    model.WarnPageFailed,
			Page:    page.Index,
			Message: "cancelled before processing started",
		})
		return nil
	}

	if text == nil || !p.tryEmbedded(text, page) {
		img, err := p.rasterize(ctx, rdoc, page)
		if err != nil {
			page.fail(err, model.Warning{
				Kind:    model.WarnPageFailed,
				Page:    page.Index,
				Message: err.Error(),
			})
			return nil
		}
		if err := page.advance(stateRasterized); err != nil {
			return err
		}
		page.Width = float64(img.Bounds().Dx())
		page.Height = float64(img.Bounds().Dy())

		if err := p.recognize(ctx, img, page, chain); err != nil {
			return err
		}
		if page.state == stateFailed {
			return nil
		}
	}

	page.Layout = p.recon.Reconstruct(page.Fragments, page.Width, page.Height)
	if err := page.advance(stateReconstructed); err != nil {
		return err
	}

	records, warnings := p.extractor.Extract(page.Layout, page.Index)
	page.Records = records
	page.Warnings = append(page.Warnings, warnings...)
	if err := page.advance(stateExtracted); err != nil {
		return err
	}
	if err := page.advance(stateDone); err != nil {
		return err
	}

	if page.Status != model.PageDegraded {
		page.Status = model.PageOK
	}
	p.logger.Debug("page done",
		"page", page.Index, "source", page.TextSource, "status", page.Status,
		"rows", page.Layout.RowCount(), "records", len(page.Records))
	return nil
}

// tryEmbedded serves the page from the PDF text layer when it is rich
// enough. Any failure here is silent; the page simply rasterizes.
func (p *Pipeline) tryEmbedded(text *pdftext.Document, page *PageState) bool {
	cfg := p.config.FastText
	if cfg.DPI == 0 {
		cfg.DPI = p.config.dpi()
	}

	pt, err := text.Page(page.Index, cfg)
	if err != nil {
		p.logger.Debug("embedded text extraction failed", "page", page.Index, "error", err)
		return false
	}
	if !pt.Substantial(cfg) {
		p.logger.Debug("embedded text layer too thin",
			"page", page.Index, "chars", pt.TextLength(), "course_hits", pt.CourseHits())
		return false
	}

	if err := page.advance(stateRecognized); err != nil {
		return false
	}
	page.Fragments = pt.Fragments
	page.TextSource = pdftext.Source
	page.Width = pt.Width
	page.Height = pt.Height
	p.logger.Debug("page served from embedded text",
		"page", page.Index, "fragments", len(pt.Fragments))
	return true
}

func (p *Pipeline) rasterize(ctx context.Context, rdoc raster.Document, page *PageState) (image.Image, error) {
	rctx := ctx
	if p.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, p.config.PageTimeout)
		defer cancel()
	}
	return rdoc.Rasterize(rctx, page.Index)
}

// recognize runs the fallback chain until a result meets the
// confidence threshold. Sub-threshold results move the page back to
// rasterized for the next engine; the best of them is kept if the
// chain runs out, leaving the page degraded rather than failed.
func (p *Pipeline) recognize(ctx context.Context, img image.Image, page *PageState, chain []*ocr.Lazy) error {
	opts := ocr.Options{
		Languages: p.config.Languages,
		PageIndex: page.Index,
		DPI:       p.config.dpi(),
	}
	threshold := p.config.minConfidence()

	var (
		best      []model.TextFragment
		bestMean  float64
		bestName  string
		lastErr   error
		emptyName string
	)

	for i, eng := range chain {
		if err := ctx.Err(); err != nil {
			page.fail(err, model.Warning{
				Kind:    model.WarnPageFailed,
				Page:    page.Index,
				Message: "cancelled during recognition",
			})
			return nil
		}

		actx := ctx
		cancel := context.CancelFunc(func() {})
		if p.config.PageTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, p.config.PageTimeout)
		}
		fragments, err := eng.Recognize(actx, img, opts)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				page.fail(ctx.Err(), model.Warning{
					Kind:    model.WarnPageFailed,
					Page:    page.Index,
					Message: "cancelled during recognition",
				})
				return nil
			}
			lastErr = err
			p.fallback(page, fmt.Sprintf("%s: %v", eng.Name(), err))
			continue
		}

		if len(fragments) == 0 {
			emptyName = eng.Name()
			if i < len(chain)-1 {
				p.fallback(page, fmt.Sprintf("%s returned no text", eng.Name()))
			}
			continue
		}

		mean := model.MeanConfidence(fragments)
		if err := page.advance(stateRecognized); err != nil {
			return err
		}

		if mean >= threshold {
			page.Fragments = fragments
			page.TextSource = eng.Name()
			p.logger.Debug("page recognized",
				"page", page.Index, "engine", eng.Name(),
				"fragments", len(fragments), "confidence", mean)
			return nil
		}

		if mean > bestMean {
			best, bestMean, bestName = fragments, mean, eng.Name()
		}
		if i < len(chain)-1 {
			// Hand the page back for the next engine.
			if err := page.advance(stateRasterized); err != nil {
				return err
			}
			p.fallback(page, fmt.Sprintf("%s mean confidence %.2f below threshold %.2f",
				eng.Name(), mean, threshold))
		}
	}

	if best != nil {
		if page.state != stateRecognized {
			if err := page.advance(stateRecognized); err != nil {
				return err
			}
		}
		page.Fragments = best
		page.TextSource = bestName
		page.Status = model.PageDegraded
		page.Warnings = append(page.Warnings, model.Warning{
			Kind: model.WarnPageDegraded,
			Page: page.Index,
			Message: fmt.Sprintf("best confidence %.2f from %s below threshold %.2f",
				bestMean, bestName, threshold),
		})
		return nil
	}

	// Every engine agreed the page is blank. That is an empty page,
	// not a failure.
	if emptyName != "" && lastErr == nil {
		if err := page.advance(stateRecognized); err != nil {
			return err
		}
		page.TextSource = emptyName
		p.logger.Debug("page is blank", "page", page.Index, "engine", emptyName)
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("no engine produced any text")
	}
	page.fail(fmt.Errorf("engines exhausted: %w", lastErr), model.Warning{
		Kind:    model.WarnPageFailed,
		Page:    page.Index,
		Message: fmt.Sprintf("engines exhausted: %v", lastErr),
	})
	return nil
}

// fallback records why the chain advanced past an engine.
func (p *Pipeline) fallback(page *PageState, reason string) {
	page.Warnings = append(page.Warnings, model.Warning{
		Kind:    model.WarnFallback,
		Page:    page.Index,
		Message: reason,
	})
	p.logger.Warn("engine fallback", "page", page.Index, "reason", reason)
}
