package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/BaSui01/mediagen/llm/retry"
)

var errEmptyArtifact = errors.New("downloaded artifact is empty")

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// saveAtomically streams fetch into a hidden temp file beside dst, checks that
// something was written, and renames it into place. dst is never touched on failure.
func saveAtomically(dst string, fetch func(w io.Writer) error) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.part", filepath.Base(dst), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	cw := &countingWriter{w: f}
	fetchErr := fetch(cw)
	closeErr := f.Close()

	switch {
	case fetchErr != nil:
		_ = os.Remove(tmp)
		return 0, fetchErr
	case closeErr != nil:
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("close temp file: %w", closeErr)
	case cw.n == 0:
		_ = os.Remove(tmp)
		return 0, errEmptyArtifact
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("move artifact into place: %w", err)
	}
	return cw.n, nil
}

// fetchToFile retries whole attempts of saveAtomically; each attempt starts a fresh temp file.
func fetchToFile(ctx context.Context, r retry.Retryer, dst string, fetch func(ctx context.Context, w io.Writer) error) (int64, error) {
	return retry.DoValue(ctx, r, func() (int64, error) {
		return saveAtomically(dst, func(w io.Writer) error {
			return fetch(ctx, w)
		})
	})
}
