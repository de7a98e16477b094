package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

const blobHostSuffix = ".blob.core.windows.net"

// AzureImageFetcher downloads images from one storage account with a shared key
type AzureImageFetcher struct {
	client  *azblob.Client
	account string
	mode    images.Mode
}

func NewAzureImageFetcher(accountName, accountKey string, mode images.Mode) (*AzureImageFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid azure storage credentials", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s%s", accountName, blobHostSuffix),
		credential,
		nil,
	)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to create azure blob client", err)
	}

	return &AzureImageFetcher{client: client, account: accountName, mode: mode}, nil
}

func (s *AzureImageFetcher) FetchImage(ctx context.Context, source string) (*images.Image, error) {
	loc, err := ParseBlobSource(source)
	if err != nil {
		return nil, err
	}
	if loc.Account != "" && loc.Account != s.account {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("blob account %q is not configured", loc.Account), nil)
	}

	resp, err := s.client.DownloadStream(ctx, loc.Container, loc.Blob, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("download of %s/%s failed", loc.Container, loc.Blob), err)
	}
	body := resp.Body
	defer body.Close()

	img, err := images.Decode(io.LimitReader(body, defaultMaxImageBytes), s.mode)
	if err != nil {
		return nil, err
	}
	img.Path = source
	img.Name = path.Base(loc.Blob)
	return img, nil
}

// BlobLocation addresses a blob; Account is empty for azblob:// sources
type BlobLocation struct {
	Account   string
	Container string
	Blob      string
}

// ParseBlobSource accepts azblob://<container>/<blob> and
// https://<account>.blob.core.windows.net/<container>/<blob>
func ParseBlobSource(source string) (BlobLocation, error) {
	u, err := url.Parse(source)
	if err != nil {
		return BlobLocation{}, apperrors.NewValidationError("invalid blob URL", err)
	}

	var loc BlobLocation
	var rest string
	switch {
	case u.Scheme == "azblob":
		loc.Container = u.Host
		rest = strings.TrimPrefix(u.Path, "/")
	case IsBlobURL(u):
		loc.Account = strings.TrimSuffix(strings.ToLower(u.Hostname()), blobHostSuffix)
		loc.Container, rest, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	default:
		return BlobLocation{}, apperrors.NewValidationError(
			fmt.Sprintf("%q is not an azure blob source", source), nil)
	}

	loc.Blob = rest
	if loc.Container == "" || loc.Blob == "" {
		return BlobLocation{}, apperrors.NewValidationError("blob URL must name a container and a blob", nil)
	}
	return loc, nil
}

// IsBlobURL reports whether u points at an account's blob endpoint
func IsBlobURL(u *url.URL) bool {
	return u.Scheme == "https" && strings.HasSuffix(strings.ToLower(u.Hostname()), blobHostSuffix)
}
