package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSaveAborted is returned by a Sink when the user abandons the save
// prompt. Callers treat it as a silent no-op, not a failure.
var ErrSaveAborted = errors.New("export: save aborted by user")

// Sink persists a rendered document. Implementations may prompt the user
// for a destination; only PDF destinations are offered.
type Sink interface {
	Save(ctx context.Context, doc *Document) error
}

// FileSink writes documents straight into a directory using the document's
// own filename.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{Dir: dir}
}

func (s *FileSink) Save(_ context.Context, doc *Document) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("export: create output directory: %w", err)
	}
	path := filepath.Join(s.Dir, doc.Filename)
	if err := os.WriteFile(path, doc.Bytes, 0644); err != nil {
		return fmt.Errorf("export: write %q: %w", path, err)
	}
	return nil
}
