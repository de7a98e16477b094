package repository

import (
	"context"

	"go-image-assessor/internal/images"
	"go-image-assessor/internal/storage"
)

// ImageRepository resolves reference and measured sources into images
type ImageRepository interface {
	// FetchImage validates source and loads it through the matching fetcher
	FetchImage(ctx context.Context, source string) (*images.Image, error)

	// ValidateSource checks source without fetching it
	ValidateSource(source string) error
}

// SourceValidator is satisfied by validation.SourceValidator
type SourceValidator interface {
	ValidateSource(source string) error
}

// Fetchers maps a lower-cased scheme ("http", "https", "azblob", "file") to its fetcher
type Fetchers map[string]storage.ImageFetcher
