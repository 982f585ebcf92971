package storesvc

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/certificate"
)

// localStorage writes artifacts to a directory served as static media.
// It is the default backend outside PROD.
type localStorage struct {
	dir           string
	publicBaseURL string
}

var _ certificate.Storage = (*localStorage)(nil)

func NewLocalStorage(conf *core.Config) *localStorage {
	return &localStorage{
		dir:           conf.Storage.LocalDir,
		publicBaseURL: conf.Storage.PublicBaseURL,
	}
}

func (s *localStorage) Store(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media directory")
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", errors.Wrap(err, "writing artifact")
	}
	return s.publicBaseURL + "/" + key, nil
}
