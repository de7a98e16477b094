package repository

import "errors"

var (
	// ErrUnsupportedSource indicates no fetcher is registered for a source scheme
	ErrUnsupportedSource = errors.New("no fetcher for source scheme")
)
