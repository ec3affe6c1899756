//go:build !ocr

package ocr

import "errors"

// ErrOCRNotEnabled is the cause of the EngineUnavailableError reported by
// the "tesseract" engine in builds without the "ocr" build tag. Rebuild
// with -tags ocr (Tesseract headers installed) to enable the CGO engine;
// the "tesseract-cli" engine works without the tag.
var ErrOCRNotEnabled = errors.New("tesseract support not enabled; rebuild with -tags ocr")

func init() {
	Register(NameTesseract, newTesseractEngine)
}

func newTesseractEngine() (Engine, error) {
	return nil, &EngineUnavailableError{Engine: NameTesseract, Err: ErrOCRNotEnabled}
}
