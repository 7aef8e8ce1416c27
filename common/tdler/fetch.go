package tdler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/trubeko66/tg-export/pkg/tmedia"
)

// Options configures the fetcher.
type Options struct {
	// Threads caps per-file download parallelism.
	Threads int
	// OverwritePolicy is one of overwrite, skip, rename.
	OverwritePolicy string
	// Dedupe enables content-hash duplicate detection on completed files.
	Dedupe bool
}

// Fetcher downloads Telegram attachments to local paths. It stages each
// download into a .part file and renames only after the byte count checks
// out, so a crashed or cancelled fetch can never leave a zero-byte file
// masquerading as a completed download.
type Fetcher struct {
	opts    Options
	deduper *deduper
	logger  *log.Logger
}

// NewFetcher builds a fetcher; logger may be nil.
func NewFetcher(opts Options, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	return &Fetcher{
		opts:    opts,
		deduper: newDeduper(opts.Dedupe),
		logger:  logger.WithPrefix("tdler"),
	}
}

// Fetch downloads file into dest and returns the bytes written.
func (f *Fetcher) Fetch(ctx context.Context, file tmedia.File, dest string) (int64, error) {
	dest, skip, err := resolveDestPath(dest, f.opts.OverwritePolicy)
	if err != nil {
		return 0, err
	}
	if skip {
		f.logger.Infof("Skipping %s, destination already exists", file.Name())
		return 0, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create destination dir: %w", err)
	}

	partPath := dest + ".part"
	out, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create staging file: %w", err)
	}

	_, err = NewDownloader(file, f.opts.Threads).Parallel(ctx, out)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(partPath)
		return 0, fmt.Errorf("failed to download %s: %w", file.Name(), err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(partPath)
		return 0, fmt.Errorf("failed to close staging file: %w", err)
	}

	written, err := validateStagingFile(partPath, file.Size())
	if err != nil {
		_ = os.Remove(partPath)
		return 0, err
	}
	if err := os.Rename(partPath, dest); err != nil {
		_ = os.Remove(partPath)
		return 0, fmt.Errorf("failed to finalize %s: %w", dest, err)
	}

	if dup, prev, err := f.deduper.IsDuplicate(dest); err != nil {
		f.logger.Warnf("Dedupe hash failed for %s: %v", dest, err)
	} else if dup {
		f.logger.Infof("Duplicate content: %s matches %s", dest, prev)
	}

	return written, nil
}

var errZeroByteDownload = errors.New("downloaded file is empty")

// validateStagingFile guards against the zero-byte download defect: a fetch
// that "completed" without flushing bytes is a failure, not a success.
func validateStagingFile(path string, expected int64) (int64, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat staging file: %w", err)
	}
	size := stat.Size()
	if size == 0 {
		return 0, errZeroByteDownload
	}
	if expected > 0 && size != expected {
		return 0, fmt.Errorf("size mismatch: expected %d bytes, wrote %d", expected, size)
	}
	return size, nil
}
