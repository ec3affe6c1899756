package ocr

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"

	"github.com/tsawler/transcripta/model"
)

// Lazy defers backend construction until the first recognition call.
//
// Construction runs at most once per process; if it fails, the failure
// is remembered and every subsequent call returns the same
// *EngineUnavailableError without retrying. Close must not be called
// concurrently with Recognize.
type Lazy struct {
	name    string
	factory func() (Engine, error)

	once sync.Once
	eng  Engine
	err  error
}

// NewLazy wraps factory so it runs on first use under name.
func NewLazy(name string, factory func() (Engine, error)) *Lazy {
	return &Lazy{name: name, factory: factory}
}

// Name returns the registry identifier of the engine.
func (l *Lazy) Name() string { return l.name }

// Recognize initializes the backend if needed and delegates to it.
func (l *Lazy) Recognize(ctx context.Context, img image.Image, opts Options) ([]model.TextFragment, error) {
	if err := l.init(); err != nil {
		return nil, err
	}
	return l.eng.Recognize(ctx, img, opts)
}

// Ready reports whether the backend can be used, initializing it if
// that has not happened yet. The returned error, if any, is the cached
// *EngineUnavailableError.
func (l *Lazy) Ready() error {
	return l.init()
}

func (l *Lazy) init() error {
	l.once.Do(func() {
		eng, err := l.factory()
		if err != nil {
			var unavailable *EngineUnavailableError
			if !errors.As(err, &unavailable) {
				err = &EngineUnavailableError{Engine: l.name, Err: err}
			}
			l.err = err
			return
		}
		l.eng = eng
	})
	return l.err
}

// Close releases the backend if it was ever initialized.
func (l *Lazy) Close() error {
	if l.eng == nil {
		return nil
	}
	if c, ok := l.eng.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
