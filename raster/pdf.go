package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
)

// pdfDocument renders PDF pages through an external renderer, one page
// per invocation so a corrupt page cannot take down its siblings. The
// renderer resolves on first use; a document served entirely from its
// embedded text layer never needs one.
type pdfDocument struct {
	path  string
	pages int
	opts  Options

	resolveOnce sync.Once
	renderer    renderer
	resolveErr  error
}

// renderer is a resolved external rendering tool.
type renderer struct {
	name string
	path string
}

// rendererCandidates in preference order. pdftoppm renders a single
// page without loading the whole document; ImageMagick is the fallback.
var rendererCandidates = []string{"pdftoppm", "magick", "convert"}

func resolveRenderer() (renderer, error) {
	for _, name := range rendererCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return renderer{name: name, path: p}, nil
		}
	}
	return renderer{}, errors.New("no PDF renderer found; install poppler-utils or ImageMagick")
}

func openPDF(path string, opts Options) (Document, error) {
	pages, err := countPages(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if pages < 1 {
		return nil, fmt.Errorf("%s contains no pages", path)
	}

	return &pdfDocument{path: path, pages: pages, opts: opts}, nil
}

func (d *pdfDocument) PageCount() int { return d.pages }

func (d *pdfDocument) Rasterize(ctx context.Context, page int) (image.Image, error) {
	if page < 0 || page >= d.pages {
		return nil, &RasterizationError{
			Page: page,
			Err:  fmt.Errorf("page out of range (document has %d)", d.pages),
		}
	}

	d.resolveOnce.Do(func() {
		d.renderer, d.resolveErr = resolveRenderer()
	})
	if d.resolveErr != nil {
		return nil, &RasterizationError{Page: page, Err: d.resolveErr}
	}

	dir, err := os.MkdirTemp("", "transcripta-raster-")
	if err != nil {
		return nil, &RasterizationError{Page: page, Err: err}
	}
	defer os.RemoveAll(dir)

	outPath, args := renderArgs(d.renderer.name, d.path, page, d.opts.dpi(), dir)
	cmd := exec.CommandContext(ctx, d.renderer.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &RasterizationError{Page: page, Err: err}
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, &RasterizationError{Page: page, Err: err}
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, &RasterizationError{Page: page, Err: err}
	}

	if d.opts.Grayscale {
		img = grayscale(img)
	}
	return img, nil
}

func (d *pdfDocument) Close() error { return nil }

// renderArgs builds the renderer command line for one 0-based page and
// returns the path of the file the renderer will produce.
func renderArgs(tool, input string, page, dpi int, dir string) (outPath string, args []string) {
	switch tool {
	case "pdftoppm":
		base := filepath.Join(dir, "page")
		return base + ".png", []string{
			"-f", strconv.Itoa(page + 1),
			"-l", strconv.Itoa(page + 1),
			"-r", strconv.Itoa(dpi),
			"-png", "-singlefile",
			input, base,
		}
	default: // magick or convert
		out := filepath.Join(dir, "page.png")
		return out, []string{
			"-density", strconv.Itoa(dpi),
			fmt.Sprintf("%s[%d]", input, page),
			out,
		}
	}
}

// countPages reads the page count in-process. The pdf library panics on
// malformed files, so the call is fenced; on failure, pdfinfo from
// poppler-utils is tried before giving up.
func countPages(path string) (int, error) {
	n, err := countPagesInProcess(path)
	if err == nil {
		return n, nil
	}
	if m, infoErr := countPagesWithPDFInfo(path); infoErr == nil {
		return m, nil
	}
	return 0, err
}

func countPagesInProcess(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return reader.NumPage(), nil
}

func countPagesWithPDFInfo(path string) (int, error) {
	bin, err := exec.LookPath("pdfinfo")
	if err != nil {
		return 0, err
	}

	out, err := exec.Command(bin, path).Output()
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if rest, ok := strings.CutPrefix(line, "Pages:"); ok {
			return strconv.Atoi(strings.TrimSpace(rest))
		}
	}
	return 0, errors.New("pdfinfo output missing page count")
}
