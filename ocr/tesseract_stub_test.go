//go:build !ocr

package ocr

import (
	"context"
	"errors"
	"testing"
)

func TestTesseractStub_Unavailable(t *testing.T) {
	eng, err := Lookup(NameTesseract)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	_, err = eng.Recognize(context.Background(), createTestImage(100, 50), Options{})
	if err == nil {
		t.Fatal("Expected error from tesseract engine without the ocr build tag")
	}

	var unavailable *EngineUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected EngineUnavailableError, got %T", err)
	}
	if !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Expected ErrOCRNotEnabled, got: %v", err)
	}
}
