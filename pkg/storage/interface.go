package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Download when the object is absent.
var ErrNotExist = errors.New("storage: object does not exist")

type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderS3     Provider = "s3"
	ProviderMemory Provider = "memory"
)

type UploadOptions struct {
	Filename    string
	Directory   string
	ContentType string
	Metadata    map[string]string
}

type UploadResult struct {
	Path     string   `json:"path"`
	Provider Provider `json:"provider"`
}

// Interface is the blob store used for generated PDFs and uploaded files.
// Paths returned by Upload are the only keys accepted by the other methods.
type Interface interface {
	Upload(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}
