// Package tdler provides the gotd-backed fetch primitive the governor drives:
// parallel part download into a staging file, size validation and atomic
// rename into place.
package tdler

import (
	"github.com/gotd/td/telegram/downloader"

	"github.com/trubeko66/tg-export/pkg/tmedia"
)

// maxPartSize is the largest part Telegram serves per upload.getFile call.
const maxPartSize = 512 * 1024

// NewDownloader builds the part downloader for a file, with thread count
// scaled to the file size.
func NewDownloader(file tmedia.File, threads int) *downloader.Builder {
	return downloader.NewDownloader().WithPartSize(maxPartSize).
		Download(file.Dler(), file.Location()).
		WithThreads(bestThreads(file.Size(), threads))
}

// bestThreads keeps small files on a single connection; parallel part fetch
// only pays off past a few megabytes.
func bestThreads(size int64, limit int) int {
	if limit < 1 {
		limit = 1
	}
	threads := 1
	switch {
	case size > 100<<20:
		threads = 8
	case size > 20<<20:
		threads = 4
	case size > 5<<20:
		threads = 2
	}
	if threads > limit {
		threads = limit
	}
	return threads
}
