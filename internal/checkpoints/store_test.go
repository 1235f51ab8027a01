package checkpoints_test

import (
	"context"
	"testing"

	"github.com/Automattic/hdfscm/internal/checkpoints"
	"github.com/Automattic/hdfscm/internal/filesystem"
	"github.com/Automattic/hdfscm/internal/pathing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rootDir   = "/user/alice/notebooks"
	sharedDir = "/user/jupyter/notebooks"
)

func newStore(t *testing.T) (*checkpoints.Store, *filesystem.Handler) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	backend := filesystem.NewLocal(t.TempDir(), &filesystem.OS{}, &filesystem.Unix{})
	fsHandler := filesystem.NewHandler(ctx, backend, true)
	resolver := pathing.NewResolver(rootDir, sharedDir)

	require.NoError(t, fsHandler.Mkdir(ctx, rootDir))
	require.NoError(t, fsHandler.Mkdir(ctx, sharedDir+"/shared"))

	return checkpoints.NewStore(fsHandler, resolver, rootDir, ""), fsHandler
}

func TestFileName(t *testing.T) {
	t.Parallel()

	name := checkpoints.FileName(checkpoints.ID, "dir/notebook.ipynb")
	assert.Regexp(t, `^[0-9a-f]{8}-notebook-checkpoint\.ipynb$`, name)

	assert.Equal(t, name, checkpoints.FileName(checkpoints.ID, "/dir/notebook.ipynb/"))
	assert.NotEqual(t, name, checkpoints.FileName(checkpoints.ID, "other/notebook.ipynb"))

	assert.Regexp(t, `^[0-9a-f]{8}-\.bashrc-checkpoint$`, checkpoints.FileName(checkpoints.ID, ".bashrc"))
	assert.Regexp(t, `^[0-9a-f]{8}-archive\.tar-checkpoint\.gz$`, checkpoints.FileName(checkpoints.ID, "archive.tar.gz"))
}

func TestStore_CreateListRestoreDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, fsHandler := newStore(t)

	require.NoError(t, fsHandler.WriteAtomic(ctx, rootDir+"/a.txt", []byte("original")))

	list, err := store.List(ctx, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, list)

	cp, err := store.Create(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, checkpoints.ID, cp.ID)
	assert.False(t, cp.LastModified.IsZero())

	list, err = store.List(ctx, "a.txt")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, checkpoints.ID, list[0].ID)

	require.NoError(t, fsHandler.WriteAtomic(ctx, rootDir+"/a.txt", []byte("changed")))
	require.NoError(t, store.Restore(ctx, checkpoints.ID, "a.txt"))

	data, err := fsHandler.ReadAll(ctx, rootDir+"/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	require.NoError(t, store.Delete(ctx, checkpoints.ID, "a.txt"))

	list, err = store.List(ctx, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_DeleteMissing(t *testing.T) {
	t.Parallel()
	store, _ := newStore(t)

	err := store.Delete(context.Background(), checkpoints.ID, "nope.txt")
	require.ErrorIs(t, err, checkpoints.ErrNotFound)
	assert.Contains(t, err.Error(), "nope.txt@checkpoint")
}

func TestStore_RestoreMissing(t *testing.T) {
	t.Parallel()
	store, _ := newStore(t)

	err := store.Restore(context.Background(), checkpoints.ID, "nope.txt")
	require.ErrorIs(t, err, checkpoints.ErrNotFound)
}

func TestStore_Rename(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, fsHandler := newStore(t)

	require.NoError(t, fsHandler.WriteAtomic(ctx, rootDir+"/a.txt", []byte("a")))
	_, err := store.Create(ctx, "a.txt")
	require.NoError(t, err)

	require.NoError(t, checkpoints.RenameAll(ctx, store, "a.txt", "b.txt"))

	list, err := store.List(ctx, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = store.List(ctx, "b.txt")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Renaming without a checkpoint is not an error.
	require.NoError(t, store.Rename(ctx, checkpoints.ID, "x.txt", "y.txt"))
}

func TestStore_SharedFileCheckpointInPersonalRoot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, fsHandler := newStore(t)

	require.NoError(t, fsHandler.WriteAtomic(ctx, sharedDir+"/shared/team.txt", []byte("team")))

	_, err := store.Create(ctx, "shared/team.txt")
	require.NoError(t, err)

	cpPath := rootDir + "/" + checkpoints.DefaultDir + "/" + checkpoints.FileName(checkpoints.ID, "shared/team.txt")
	assert.True(t, fsHandler.IsFile(ctx, cpPath))
}

func TestDeleteAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, fsHandler := newStore(t)

	require.NoError(t, fsHandler.WriteAtomic(ctx, rootDir+"/a.txt", []byte("a")))
	_, err := store.Create(ctx, "a.txt")
	require.NoError(t, err)

	require.NoError(t, checkpoints.DeleteAll(ctx, store, "a.txt"))
	require.NoError(t, checkpoints.DeleteAll(ctx, store, "a.txt"))

	list, err := store.List(ctx, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNoOp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cp := checkpoints.NoOp{}

	created, err := cp.Create(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, checkpoints.ID, created.ID)

	list, err := cp.List(ctx, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, cp.Restore(ctx, checkpoints.ID, "a.txt"))
	require.NoError(t, cp.Rename(ctx, checkpoints.ID, "a.txt", "b.txt"))
	require.NoError(t, cp.Delete(ctx, checkpoints.ID, "a.txt"))
	assert.Empty(t, cp.Dir())
}
