package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsawler/transcripta/model"
)

func init() {
	Register(NameTesseractCLI, newTesseractCLIEngine)
}

// tesseractCLIEngine shells out to the tesseract binary and parses its
// hOCR output. Each call runs an independent process, so the engine is
// trivially safe for concurrent use and needs no CGO.
type tesseractCLIEngine struct {
	binary string
}

func newTesseractCLIEngine() (Engine, error) {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		return nil, &EngineUnavailableError{Engine: NameTesseractCLI, Err: err}
	}
	return &tesseractCLIEngine{binary: path}, nil
}

func (e *tesseractCLIEngine) Name() string { return NameTesseractCLI }

func (e *tesseractCLIEngine) Recognize(ctx context.Context, img image.Image, opts Options) ([]model.TextFragment, error) {
	dir, err := os.MkdirTemp("", "transcripta-ocr-")
	if err != nil {
		return nil, &RecognitionError{Engine: NameTesseractCLI, Page: opts.PageIndex, Err: err}
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "page.png")
	if err := writePNG(inPath, img); err != nil {
		return nil, &RecognitionError{Engine: NameTesseractCLI, Page: opts.PageIndex, Err: err}
	}

	// tesseract writes <outBase>.hocr when the hocr config is given.
	outBase := filepath.Join(dir, "page")
	args := []string{inPath, outBase}
	if opts.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(opts.DPI))
	}
	args = append(args, "-l", opts.LanguageSpec(), "hocr")

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		return nil, &RecognitionError{Engine: NameTesseractCLI, Page: opts.PageIndex, Err: err}
	}

	hocr, err := os.ReadFile(outBase + ".hocr")
	if err != nil {
		return nil, &RecognitionError{Engine: NameTesseractCLI, Page: opts.PageIndex, Err: err}
	}

	fragments, err := parseHOCR(bytes.NewReader(hocr), opts.PageIndex)
	if err != nil {
		return nil, &RecognitionError{Engine: NameTesseractCLI, Page: opts.PageIndex, Err: err}
	}
	for i := range fragments {
		fragments[i].Engine = NameTesseractCLI
	}

	bounds := img.Bounds()
	return model.CleanFragments(fragments, float64(bounds.Dx()), float64(bounds.Dy())), nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// lastLine trims a multi-line stderr dump to its final line, which is
// where tesseract puts the actual error.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
