package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/raids-lab/ptms/pkg/logutils"
)

type localStorage struct {
	root string
}

// NewLocalStorage stores objects as files below root.
func NewLocalStorage(root string) (Interface, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", abs, err)
	}
	return &localStorage{root: abs}, nil
}

func (s *localStorage) fullPath(p string) (string, error) {
	key, err := cleanKey(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *localStorage) Upload(_ context.Context, data []byte, opts UploadOptions) (*UploadResult, error) {
	key, err := objectKey(opts.Directory, opts.Filename)
	if err != nil {
		return nil, err
	}
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return nil, err
	}
	if err := os.WriteFile(full, data, 0o640); err != nil {
		return nil, err
	}
	logutils.Component("storage").Debugf("stored %s (%d bytes)", key, len(data))
	return &UploadResult{Path: key, Provider: ProviderLocal}, nil
}

func (s *localStorage) Download(_ context.Context, p string) ([]byte, error) {
	full, err := s.fullPath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

func (s *localStorage) Exists(_ context.Context, p string) (bool, error) {
	full, err := s.fullPath(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *localStorage) Delete(_ context.Context, p string) error {
	full, err := s.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
