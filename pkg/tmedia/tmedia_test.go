package tmedia

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDocument(t *testing.T) {
	doc := &tg.Document{
		ID:         1,
		AccessHash: 2,
		Size:       4096,
		Attributes: []tg.DocumentAttributeClass{
			&tg.DocumentAttributeFilename{FileName: "report.pdf"},
		},
	}
	media := &tg.MessageMediaDocument{}
	media.SetDocument(doc)

	f, err := FromMedia(media, nil)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", f.Name())
	assert.Equal(t, int64(4096), f.Size())
	require.IsType(t, &tg.InputDocumentFileLocation{}, f.Location())
}

func TestFromDocumentWithoutFilename(t *testing.T) {
	media := &tg.MessageMediaDocument{}
	media.SetDocument(&tg.Document{ID: 7, Size: 10})

	f, err := FromMedia(media, nil, WithNameIfEmpty("msg_7.bin"))
	require.NoError(t, err)
	assert.Equal(t, "msg_7.bin", f.Name())

	f, err = FromMedia(media, nil, WithName("override.bin"))
	require.NoError(t, err)
	assert.Equal(t, "override.bin", f.Name())
}

func TestFromPhotoPicksLargestSize(t *testing.T) {
	photo := &tg.Photo{
		ID:         11,
		AccessHash: 12,
		Sizes: []tg.PhotoSizeClass{
			&tg.PhotoSize{Type: "s", Size: 100},
			&tg.PhotoSize{Type: "y", Size: 90000},
			&tg.PhotoSize{Type: "m", Size: 5000},
		},
	}
	media := &tg.MessageMediaPhoto{}
	media.SetPhoto(photo)

	f, err := FromMedia(media, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(90000), f.Size())

	loc, ok := f.Location().(*tg.InputPhotoFileLocation)
	require.True(t, ok)
	assert.Equal(t, "y", loc.ThumbSize)
	assert.Equal(t, int64(11), loc.ID)
}

func TestFromPhotoProgressiveSizes(t *testing.T) {
	photo := &tg.Photo{
		ID: 3,
		Sizes: []tg.PhotoSizeClass{
			&tg.PhotoSizeProgressive{Type: "w", Sizes: []int{100, 2000, 70000}},
		},
	}
	media := &tg.MessageMediaPhoto{}
	media.SetPhoto(photo)

	f, err := FromMedia(media, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(70000), f.Size())
}

func TestFromMediaUnsupported(t *testing.T) {
	_, err := FromMedia(&tg.MessageMediaGeo{}, nil)
	assert.Error(t, err)
	assert.False(t, IsSupported(&tg.MessageMediaGeo{}))
	assert.True(t, IsSupported(&tg.MessageMediaPhoto{}))
	assert.True(t, IsSupported(&tg.MessageMediaDocument{}))
}

func TestExt(t *testing.T) {
	media := &tg.MessageMediaDocument{}
	media.SetDocument(&tg.Document{Attributes: []tg.DocumentAttributeClass{
		&tg.DocumentAttributeFilename{FileName: "clip.mp4"},
	}})
	f, err := FromMedia(media, nil)
	require.NoError(t, err)
	assert.Equal(t, ".mp4", Ext(f))

	media2 := &tg.MessageMediaDocument{}
	media2.SetDocument(&tg.Document{})
	f2, err := FromMedia(media2, nil)
	require.NoError(t, err)
	assert.Equal(t, ".bin", Ext(f2))
}
