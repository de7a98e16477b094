package storage

import (
	"context"
	"strings"

	"go-image-assessor/internal/images"
)

// FileImageFetcher reads images from the local filesystem; source is a path
// or a file:// URL
type FileImageFetcher struct {
	mode images.Mode
}

func NewFileImageFetcher(mode images.Mode) *FileImageFetcher {
	return &FileImageFetcher{mode: mode}
}

func (f *FileImageFetcher) FetchImage(ctx context.Context, source string) (*images.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return images.Load(strings.TrimPrefix(source, "file://"), f.mode)
}
