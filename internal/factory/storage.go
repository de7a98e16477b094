package factory

import (
	"fmt"

	"go-image-assessor/internal/config"
	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/repository"
	"go-image-assessor/internal/storage"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
	// Fetchers maps every allowed source scheme to a fetcher
	Fetchers() (repository.Fetchers, error)
}

type storageFactory struct {
	cfg  *config.Config
	mode images.Mode
}

// NewStorageFactory creates fetchers that decode with the configured load mode
func NewStorageFactory(cfg *config.Config) (StorageFactory, error) {
	mode, err := images.ParseMode(cfg.LoadMode)
	if err != nil {
		return nil, err
	}
	return &storageFactory{cfg: cfg, mode: mode}, nil
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.mode, f.cfg.ImageFetchTimeout), nil
	case AzureStorage:
		if !f.cfg.AzureEnabled() {
			return nil, apperrors.NewConfigurationError("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY", nil)
		}
		return storage.NewAzureImageFetcher(f.cfg.AzureAccountName, f.cfg.AzureAccountKey, f.mode)
	case LocalStorage:
		return storage.NewFileImageFetcher(f.mode), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// Fetchers skips azblob when no credentials are configured; such sources
// then fail with repository.ErrUnsupportedSource
func (f *storageFactory) Fetchers() (repository.Fetchers, error) {
	fetchers := repository.Fetchers{}
	for _, scheme := range f.cfg.AllowedSchemes {
		var st StorageType
		switch scheme {
		case "http", "https":
			st = HTTPStorage
		case "azblob":
			if !f.cfg.AzureEnabled() {
				continue
			}
			st = AzureStorage
		case "file":
			st = LocalStorage
		default:
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("no storage backend for scheme %q", scheme), nil)
		}

		fetcher, err := f.CreateStorage(st)
		if err != nil {
			return nil, err
		}
		fetchers[scheme] = fetcher
	}
	return fetchers, nil
}
