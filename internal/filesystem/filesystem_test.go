package filesystem_test

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Automattic/hdfscm/internal/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalHandler(t *testing.T) (*filesystem.Handler, string) {
	t.Helper()

	base := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	backend := filesystem.NewLocal(base, &filesystem.OS{}, &filesystem.Unix{})

	return filesystem.NewHandler(ctx, backend, true), base
}

func TestHandler_Info_Kinds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, base := newLocalHandler(t)

	require.NoError(t, os.MkdirAll(filepath.Join(base, "root", "dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "root", "file.txt"), []byte("hello"), 0o644))

	testCases := []struct {
		name string
		path string
		kind filesystem.Kind
	}{
		{"Directory", "/root/dir", filesystem.KindDirectory},
		{"File", "/root/file.txt", filesystem.KindFile},
		{"Missing", "/root/nope", filesystem.KindNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := h.Info(ctx, tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, info.Kind)
			assert.Equal(t, tc.path, info.Path)
		})
	}

	info, err := h.Info(ctx, "/root/file.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 5, info.Size)
	assert.True(t, h.IsFile(ctx, "/root/file.txt"))
	assert.True(t, h.IsDir(ctx, "/root/dir"))
	assert.False(t, h.Exists(ctx, "/root/nope"))
}

func TestHandler_LocalPathCannotEscapeBase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, base := newLocalHandler(t)

	require.NoError(t, h.WriteAtomic(ctx, "/../../escape.txt", []byte("x")))

	_, err := os.Stat(filepath.Join(base, "escape.txt"))
	require.NoError(t, err)
}

func TestHandler_WriteAtomic_ReadAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, _ := newLocalHandler(t)

	require.NoError(t, h.Mkdir(ctx, "/root"))
	require.NoError(t, h.WriteAtomic(ctx, "/root/a.txt", []byte("first")))
	require.NoError(t, h.WriteAtomic(ctx, "/root/a.txt", []byte("second")))

	data, err := h.ReadAll(ctx, "/root/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := h.List(ctx, "/root")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/root/a.txt", entries[0].Path)
}

func TestHandler_WriteAtomic_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, _ := newLocalHandler(t)

	require.NoError(t, h.Mkdir(ctx, "/root"))

	data := bytes.Repeat([]byte("0123456789abcdef"), 64*1024)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- h.WriteAtomic(ctx, "/root/same.txt", data)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := h.ReadAll(ctx, "/root/same.txt")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	entries, err := h.List(ctx, "/root")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestHandler_WriteAtomic_StaleTempFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, base := newLocalHandler(t)

	require.NoError(t, os.MkdirAll(filepath.Join(base, "root"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "root", ".~hdfscm-a.txt"), []byte("stale"), 0o644))

	require.NoError(t, h.WriteAtomic(ctx, "/root/a.txt", []byte("fresh")))

	data, err := h.ReadAll(ctx, "/root/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestHandler_WriteAtomic_Canceled(t *testing.T) {
	t.Parallel()
	h, _ := newLocalHandler(t)

	require.NoError(t, h.Mkdir(context.Background(), "/root"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, h.WriteAtomic(ctx, "/root/a.txt", []byte("data")))
	assert.False(t, h.Exists(context.Background(), "/root/a.txt"))
}

func TestHandler_Copy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, _ := newLocalHandler(t)

	require.NoError(t, h.Mkdir(ctx, "/root/sub"))
	require.NoError(t, h.WriteAtomic(ctx, "/root/src.bin", []byte{0x00, 0xff, 0x10}))
	require.NoError(t, h.WriteAtomic(ctx, "/root/sub/dst.bin", []byte("old")))

	require.NoError(t, h.Copy(ctx, "/root/src.bin", "/root/sub/dst.bin"))

	data, err := h.ReadAll(ctx, "/root/sub/dst.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff, 0x10}, data)
}

func TestHandler_Copy_MissingSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, _ := newLocalHandler(t)

	err := h.Copy(ctx, "/root/missing", "/root/dst")
	require.Error(t, err)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestHandler_List_Sorted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, _ := newLocalHandler(t)

	require.NoError(t, h.Mkdir(ctx, "/root/b"))
	require.NoError(t, h.WriteAtomic(ctx, "/root/c.txt", []byte("c")))
	require.NoError(t, h.WriteAtomic(ctx, "/root/a.txt", []byte("a")))

	infos, err := h.List(ctx, "/root")
	require.NoError(t, err)
	require.Len(t, infos, 3)

	assert.Equal(t, "/root/a.txt", infos[0].Path)
	assert.Equal(t, "/root/b", infos[1].Path)
	assert.Equal(t, filesystem.KindDirectory, infos[1].Kind)
	assert.Equal(t, "/root/c.txt", infos[2].Path)
}

func TestHandler_IsEmptyFolder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, _ := newLocalHandler(t)

	require.NoError(t, h.Mkdir(ctx, "/root/.ipynb_checkpoints"))

	empty, err := h.IsEmptyFolder(ctx, "/root")
	require.NoError(t, err)
	assert.False(t, empty)

	empty, err = h.IsEmptyFolder(ctx, "/root", ".ipynb_checkpoints")
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestHandler_MoveAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, _ := newLocalHandler(t)

	require.NoError(t, h.Mkdir(ctx, "/root/dir/nested"))
	require.NoError(t, h.WriteAtomic(ctx, "/root/dir/nested/f", []byte("f")))
	require.NoError(t, h.WriteAtomic(ctx, "/root/a", []byte("a")))

	require.NoError(t, h.Move(ctx, "/root/a", "/root/b"))
	assert.False(t, h.Exists(ctx, "/root/a"))
	assert.True(t, h.IsFile(ctx, "/root/b"))

	require.NoError(t, h.DeleteFile(ctx, "/root/b"))
	assert.False(t, h.Exists(ctx, "/root/b"))

	require.NoError(t, h.DeleteDir(ctx, "/root/dir"))
	assert.False(t, h.Exists(ctx, "/root/dir"))
}

func TestTempPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/root/dir/.~hdfscm-file.ipynb.1", filesystem.TempPath("/root/dir/file.ipynb", "1"))
	assert.Equal(t, "/.~hdfscm-file.x", filesystem.TempPath("/file", "x"))
	assert.NotEqual(t, filesystem.TempPath("/file", "a"), filesystem.TempPath("/file", "b"))
}
