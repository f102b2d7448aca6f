package export

import (
	"fmt"
	"log/slog"
	"os"
)

// WithTemporaryRenderTarget runs fn with a fresh scratch directory under baseDir and
// removes the directory afterwards, whether fn succeeds, fails or panics. A panic is
// returned as an error.
func WithTemporaryRenderTarget(baseDir string, fn func(dir string) error) (err error) {
	dir, err := os.MkdirTemp(baseDir, "analysis-export-*")
	if err != nil {
		return fmt.Errorf("creating render target: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.Warn("failed to remove render target", "dir", dir, "error", rmErr)
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("render panicked: %v", p)
		}
	}()

	return fn(dir)
}
