package contents_test

import (
	"context"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Automattic/hdfscm/internal/checkpoints"
	"github.com/Automattic/hdfscm/internal/contents"
	"github.com/Automattic/hdfscm/internal/filesystem"
	"github.com/Automattic/hdfscm/internal/pathing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedOS refuses every access to names whose base contains "locked",
// like a store enforcing permissions the server user lacks.
type lockedOS struct {
	filesystem.OS
}

func denied(op, name string) error {
	if strings.Contains(filepath.Base(name), "locked") {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrPermission}
	}

	return nil
}

func (o *lockedOS) Stat(name string) (os.FileInfo, error) {
	if err := denied("stat", name); err != nil {
		return nil, err
	}

	return o.OS.Stat(name)
}

func (o *lockedOS) ReadDir(name string) ([]os.DirEntry, error) {
	if err := denied("readdir", name); err != nil {
		return nil, err
	}

	return o.OS.ReadDir(name)
}

func (o *lockedOS) Open(name string) (*os.File, error) {
	if err := denied("open", name); err != nil {
		return nil, err
	}

	return o.OS.Open(name)
}

func (o *lockedOS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	if err := denied("open", name); err != nil {
		return nil, err
	}

	return o.OS.OpenFile(name, flag, perm)
}

func (o *lockedOS) Remove(name string) error {
	if err := denied("remove", name); err != nil {
		return err
	}

	return o.OS.Remove(name)
}

func (o *lockedOS) Rename(oldpath, newpath string) error {
	if err := denied("rename", oldpath); err != nil {
		return err
	}

	return o.OS.Rename(oldpath, newpath)
}

func newLockedManager(t *testing.T) *contents.Manager {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	backend := filesystem.NewLocal(t.TempDir(), &lockedOS{}, &filesystem.Unix{})
	fsHandler := filesystem.NewHandler(ctx, backend, true)
	cp := checkpoints.NewStore(fsHandler, pathing.NewResolver(rootDir, sharedDir), rootDir, "")

	m := contents.NewManager(fsHandler, cp, contents.Options{RootDir: rootDir, SharedDir: sharedDir})
	require.NoError(t, m.EnsureRootDirectory(ctx))

	return m
}

func TestManager_PermissionDenied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newLockedManager(t)

	testCases := []struct {
		name string
		run  func() error
	}{
		{"Fail_Get", func() error {
			_, err := m.Get(ctx, "locked.txt", contents.GetOptions{Content: true})

			return err
		}},
		{"Fail_GetWithType", func() error {
			_, err := m.Get(ctx, "locked.txt", contents.GetOptions{Type: contents.TypeFile})

			return err
		}},
		{"Fail_Save", func() error {
			_, err := m.Save(ctx, textInput("x"), "locked.txt")

			return err
		}},
		{"Fail_Delete", func() error {
			return m.Delete(ctx, "locked.txt")
		}},
		{"Fail_Rename", func() error {
			return m.Rename(ctx, "locked.txt", "free.txt")
		}},
		{"Fail_Copy", func() error {
			_, err := m.Copy(ctx, "locked.txt", "")

			return err
		}},
		{"Fail_CreateCheckpoint", func() error {
			_, err := m.CreateCheckpoint(ctx, "locked.txt")

			return err
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.run()
			requireStatus(t, err, http.StatusForbidden)

			var cErr *contents.Error
			require.ErrorAs(t, err, &cErr)
			assert.Equal(t, "Permission denied: locked.txt", cErr.Message)
			assert.ErrorIs(t, err, fs.ErrPermission)
		})
	}
}

func TestManager_PermissionDenied_OtherPathsWork(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newLockedManager(t)

	_, err := m.Save(ctx, textInput("free"), "free.txt")
	require.NoError(t, err)

	model, err := m.Get(ctx, "free.txt", contents.GetOptions{Content: true})
	require.NoError(t, err)
	assert.Equal(t, "free", model.Content)
}
