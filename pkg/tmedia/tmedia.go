// Package tmedia wraps Telegram message media into a flat file handle that the
// download pipeline can treat as opaque: a name, a size and a location to pull
// bytes from.
package tmedia

import (
	"fmt"
	"path"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"
)

// File is an attachment pending download.
type File interface {
	// Name returns the destination file name (with extension).
	Name() string
	// Size returns the expected byte size, 0 when unknown.
	Size() int64
	// Location returns the Telegram file location to fetch from.
	Location() tg.InputFileLocationClass
	// Dler returns the client the downloader pulls parts through.
	Dler() downloader.Client
}

type file struct {
	name     string
	size     int64
	location tg.InputFileLocationClass
	client   downloader.Client
}

func (f *file) Name() string { return f.name }

func (f *file) Size() int64 { return f.size }

func (f *file) Location() tg.InputFileLocationClass { return f.location }

func (f *file) Dler() downloader.Client { return f.client }

// Option mutates a file handle during construction.
type Option func(*file)

// WithName overrides the file name.
func WithName(name string) Option {
	return func(f *file) {
		f.name = name
	}
}

// WithNameIfEmpty sets the file name only when media carried none.
func WithNameIfEmpty(name string) Option {
	return func(f *file) {
		if f.name == "" {
			f.name = name
		}
	}
}

// FromMedia builds a File from message media. Only photos and documents carry
// downloadable payloads; everything else is rejected.
func FromMedia(media tg.MessageMediaClass, client downloader.Client, opts ...Option) (File, error) {
	var f *file
	switch m := media.(type) {
	case *tg.MessageMediaDocument:
		docClass, ok := m.GetDocument()
		if !ok {
			return nil, fmt.Errorf("document media without document")
		}
		doc, ok := docClass.AsNotEmpty()
		if !ok {
			return nil, fmt.Errorf("empty document media")
		}
		f = fromDocument(doc, client)
	case *tg.MessageMediaPhoto:
		photoClass, ok := m.GetPhoto()
		if !ok {
			return nil, fmt.Errorf("photo media without photo")
		}
		photo, ok := photoClass.AsNotEmpty()
		if !ok {
			return nil, fmt.Errorf("empty photo media")
		}
		var err error
		f, err = fromPhoto(photo, client)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported media type %T", media)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// IsSupported reports whether the media kind can be downloaded at all.
func IsSupported(media tg.MessageMediaClass) bool {
	switch media.(type) {
	case *tg.MessageMediaDocument, *tg.MessageMediaPhoto:
		return true
	default:
		return false
	}
}

func fromDocument(doc *tg.Document, client downloader.Client) *file {
	name := ""
	for _, attr := range doc.Attributes {
		if fname, ok := attr.(*tg.DocumentAttributeFilename); ok {
			name = fname.FileName
			break
		}
	}
	return &file{
		name:     name,
		size:     doc.Size,
		location: doc.AsInputDocumentFileLocation(),
		client:   client,
	}
}

func fromPhoto(photo *tg.Photo, client downloader.Client) (*file, error) {
	size, ok := largestPhotoSize(photo.Sizes)
	if !ok {
		return nil, fmt.Errorf("photo %d has no downloadable sizes", photo.ID)
	}
	return &file{
		name: fmt.Sprintf("photo_%d.jpg", photo.ID),
		size: int64(photoSizeBytes(size)),
		location: &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     size.GetType(),
		},
		client: client,
	}, nil
}

func largestPhotoSize(sizes []tg.PhotoSizeClass) (tg.PhotoSizeClass, bool) {
	var best tg.PhotoSizeClass
	bestBytes := -1
	for _, s := range sizes {
		b := photoSizeBytes(s)
		if b > bestBytes {
			best, bestBytes = s, b
		}
	}
	return best, best != nil
}

func photoSizeBytes(size tg.PhotoSizeClass) int {
	switch s := size.(type) {
	case *tg.PhotoSize:
		return s.Size
	case *tg.PhotoSizeProgressive:
		if len(s.Sizes) == 0 {
			return 0
		}
		return s.Sizes[len(s.Sizes)-1]
	default:
		return 0
	}
}

// Ext returns the file extension of the media name, ".bin" when absent.
func Ext(f File) string {
	if ext := path.Ext(f.Name()); ext != "" {
		return ext
	}
	return ".bin"
}
