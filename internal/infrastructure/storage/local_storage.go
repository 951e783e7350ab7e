package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/metrics"
)

// LocalStorage keeps one directory per patch under the storage root.
type LocalStorage struct {
	basePath string
	log      zerolog.Logger
}

// NewLocalStorage creates the storage root when missing.
func NewLocalStorage(cfg *config.Config, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := strings.TrimSpace(cfg.StorageDir)
	if basePath == "" {
		return nil, errors.New("STORAGE_DIR is not set")
	}
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}

	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	logger.Info().Str("path", absPath).Msg("local storage initialized")

	return &LocalStorage{
		basePath: absPath,
		log:      logger,
	}, nil
}

// Dir returns the directory of patch id.
func (l *LocalStorage) Dir(id string) string {
	return filepath.Join(l.basePath, id)
}

// Allocate creates a fresh directory for id. An existing directory is reported
// as ErrStorageUnavailable since ids are never reused.
func (l *LocalStorage) Allocate(ctx context.Context, id string) (string, error) {
	if !isPlainName(id) {
		return "", fmt.Errorf("%w: invalid id %q", domain.ErrStorageUnavailable, id)
	}
	dir := l.Dir(id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return dir, nil
}

// Write streams body to dir/name. A failed copy leaves the partial file for
// the caller to clean up.
func (l *LocalStorage) Write(ctx context.Context, dir, name string, body io.Reader) (string, error) {
	if !isPlainName(name) {
		return "", fmt.Errorf("%w: invalid file name %q", domain.ErrWriteFailed, name)
	}
	fullPath := filepath.Join(dir, name)

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %w", domain.ErrWriteFailed, name, err)
	}

	written, err := io.Copy(file, body)
	if err != nil {
		file.Close()
		return "", fmt.Errorf("%w: copy %s: %w", domain.ErrWriteFailed, name, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return "", fmt.Errorf("%w: sync %s: %w", domain.ErrWriteFailed, name, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %w", domain.ErrWriteFailed, name, err)
	}

	l.log.Debug().
		Str("path", fullPath).
		Int64("bytes", written).
		Msg("file staged")

	return fullPath, nil
}

// WriteBytes stores an in-memory payload such as a rendition.
func (l *LocalStorage) WriteBytes(ctx context.Context, dir, name string, data []byte) (string, error) {
	return l.Write(ctx, dir, name, bytes.NewReader(data))
}

// Cleanup deletes each named file in dir, then dir itself when nothing else
// is left in it. Missing files are ignored; other failures are logged.
func (l *LocalStorage) Cleanup(ctx context.Context, dir string, names []string) {
	for _, name := range names {
		if !isPlainName(name) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			metrics.RecordCleanupFailure()
			l.log.Warn().Err(err).Str("path", path).Msg("could not remove staged file")
		}
	}

	if err := os.Remove(dir); err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENOTEMPTY), errors.Is(err, syscall.EEXIST):
			l.log.Debug().Str("dir", dir).Msg("staging directory kept")
		default:
			metrics.RecordCleanupFailure()
			l.log.Warn().Err(err).Str("dir", dir).Msg("could not remove staging directory")
		}
	}
}

// Health checks if the storage directory is accessible.
func (l *LocalStorage) Health(ctx context.Context) error {
	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}

func isPlainName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
