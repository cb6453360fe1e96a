package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/raids-lab/ptms/pkg/config"
)

// New builds the adapter selected in the configuration. It is called once at startup
// and the result is injected into every consumer.
func New(conf *config.Config) (Interface, error) {
	switch Provider(conf.Storage.Provider) {
	case ProviderLocal, "":
		return NewLocalStorage(conf.Storage.Local.RootDir)
	case ProviderS3:
		s3 := conf.Storage.S3
		return NewS3Storage(S3Options{
			Endpoint:  s3.Endpoint,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			Region:    s3.Region,
			UseSSL:    s3.UseSSL,
		})
	case ProviderMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", conf.Storage.Provider)
	}
}

// objectKey joins directory and filename into a slash separated key and rejects
// keys escaping the storage root.
func objectKey(directory, filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("storage: empty filename")
	}
	key := path.Clean(path.Join("/", directory, filename))
	key = strings.TrimPrefix(key, "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("storage: invalid key %q", path.Join(directory, filename))
	}
	return key, nil
}

func cleanKey(p string) (string, error) {
	return objectKey(path.Dir(p), path.Base(p))
}
