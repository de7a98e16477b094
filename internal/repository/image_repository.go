package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/logger"
	"go-image-assessor/internal/storage"
	"go-image-assessor/pkg/validation"

	"github.com/sirupsen/logrus"
)

// sourceRepository routes sources to fetchers by scheme. Blob endpoint URLs
// (https://<account>.blob.core.windows.net/...) go to the azblob fetcher
// when one is configured.
type sourceRepository struct {
	fetchers  Fetchers
	validator SourceValidator
	log       *logrus.Entry
}

func NewImageRepository(fetchers Fetchers, validator SourceValidator) ImageRepository {
	return &sourceRepository{
		fetchers:  fetchers,
		validator: validator,
		log:       logger.WithComponent("repository"),
	}
}

func (r *sourceRepository) FetchImage(ctx context.Context, source string) (*images.Image, error) {
	source = strings.TrimSpace(source)
	if err := r.ValidateSource(source); err != nil {
		return nil, err
	}

	fetcher, err := r.fetcherFor(source)
	if err != nil {
		return nil, err
	}

	img, err := fetcher.FetchImage(ctx, source)
	if err != nil {
		r.log.WithError(err).WithField("source", source).Debug("Fetch failed")
		return nil, err
	}
	return img, nil
}

func (r *sourceRepository) ValidateSource(source string) error {
	if r.validator == nil {
		return nil
	}
	return r.validator.ValidateSource(source)
}

func (r *sourceRepository) fetcherFor(source string) (storage.ImageFetcher, error) {
	scheme := validation.Scheme(source)

	if scheme == "https" {
		if u, err := url.Parse(source); err == nil && storage.IsBlobURL(u) {
			if f, ok := r.fetchers["azblob"]; ok {
				return f, nil
			}
		}
	}

	f, ok := r.fetchers[scheme]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("sources with scheme %q are not supported", scheme), ErrUnsupportedSource)
	}
	return f, nil
}
