package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	store, err := NewLocalStorage(&config.Config{StorageDir: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestAllocate_RejectsExistingDirectory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	dir, err := store.Allocate(ctx, "patch-1")
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, store.Dir("patch-1"), dir)

	_, err = store.Allocate(ctx, "patch-1")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestAllocate_RejectsPathLikeIDs(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.Allocate(context.Background(), "../escape")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestWrite_StoresUnderOriginalName(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	dir, err := store.Allocate(ctx, "patch-1")
	require.NoError(t, err)

	path, err := store.Write(ctx, dir, "demo.bsk", strings.NewReader("definition"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "demo.bsk"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "definition", string(data))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestWrite_Failures(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	dir, err := store.Allocate(ctx, "patch-1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		dir      string
		fileName string
		body     io.Reader
	}{
		{name: "reader error", dir: dir, fileName: "demo.bsk", body: failingReader{}},
		{name: "missing directory", dir: filepath.Join(dir, "nope"), fileName: "demo.bsk", body: strings.NewReader("x")},
		{name: "traversal", dir: dir, fileName: "../demo.bsk", body: strings.NewReader("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Write(ctx, tt.dir, tt.fileName, tt.body)
			assert.ErrorIs(t, err, domain.ErrWriteFailed)
		})
	}
}

func TestCleanup_RemovesFilesAndEmptyDirectory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	dir, err := store.Allocate(ctx, "patch-1")
	require.NoError(t, err)
	for _, name := range []string{"demo.bsk", "loop.mp3"} {
		_, err := store.WriteBytes(ctx, dir, name, []byte(name))
		require.NoError(t, err)
	}

	store.Cleanup(ctx, dir, []string{"demo.bsk", "loop.mp3", "never-written.png"})

	assert.NoDirExists(t, dir)
}

func TestCleanup_KeepsDirectoryWithUnknownFiles(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	dir, err := store.Allocate(ctx, "patch-1")
	require.NoError(t, err)
	_, err = store.WriteBytes(ctx, dir, "demo.bsk", []byte("x"))
	require.NoError(t, err)
	_, err = store.WriteBytes(ctx, dir, "other.txt", []byte("x"))
	require.NoError(t, err)

	store.Cleanup(ctx, dir, []string{"demo.bsk"})

	assert.NoFileExists(t, filepath.Join(dir, "demo.bsk"))
	assert.FileExists(t, filepath.Join(dir, "other.txt"))
}

func TestCleanup_MissingDirectoryDoesNotPanic(t *testing.T) {
	store := newTestStorage(t)

	assert.NotPanics(t, func() {
		store.Cleanup(context.Background(), store.Dir("ghost"), []string{"demo.bsk"})
	})
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "patches/abc/demo.bsk", ObjectKey("abc", "demo.bsk"))
}

func TestS3Mirror_DisabledIsNoop(t *testing.T) {
	mirror, err := NewS3Mirror(context.Background(), &config.Config{}, zerolog.Nop())
	require.NoError(t, err)

	err = mirror.MirrorPatch(context.Background(), &domain.Patch{UUID: "abc", PrimaryFile: "demo.bsk"}, "/nonexistent")
	assert.NoError(t, err)
	assert.NoError(t, mirror.Health(context.Background()))
}
