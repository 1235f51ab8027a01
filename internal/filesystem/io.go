package filesystem

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

const tmpPrefix = ".~hdfscm-"

//nolint:containedctx
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, context.Canceled
	default:
		return cr.reader.Read(p)
	}
}

// TempPath returns the hidden sibling a single write of name goes through.
// Every write uses its own id, so concurrent writes of one file never share
// a temporary file.
func TempPath(name, id string) string {
	dir, base := path.Split(name)

	return path.Join(dir, tmpPrefix+base+"."+id)
}

func (f *Handler) ReadAll(ctx context.Context, name string) ([]byte, error) {
	r, err := f.backend.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("(fs-read) failed to open: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(&contextReader{ctx: ctx, reader: r})
	if err != nil {
		return nil, fmt.Errorf("(fs-read) failed to read: %w", err)
	}

	return data, nil
}

// WriteAtomic replaces the contents of name with data. The data is first
// written to a hidden temporary file next to name, which is then renamed
// over the target, so readers never observe a partially written file.
func (f *Handler) WriteAtomic(ctx context.Context, name string, data []byte) error {
	if _, err := f.writeVia(ctx, bytes.NewReader(data), name); err != nil {
		return fmt.Errorf("(fs-write) %w", err)
	}

	slog.Debug("Wrote file",
		"path", name,
		"size", humanize.Bytes(uint64(len(data))),
	)

	return nil
}

// Copy copies src to dst, replacing dst. Both sides are hashed while
// streaming; with verification enabled the written temporary file is read
// back and its checksum compared before it is moved into place.
func (f *Handler) Copy(ctx context.Context, src, dst string) error {
	srcFile, err := f.backend.Open(ctx, src)
	if err != nil {
		return fmt.Errorf("(fs-copy) failed to open src: %w", err)
	}
	defer srcFile.Close()

	checksum, err := f.writeVia(ctx, srcFile, dst)
	if err != nil {
		return fmt.Errorf("(fs-copy) %w", err)
	}

	slog.Debug("Copied file",
		"src", src,
		"dst", dst,
		"blake3", checksum,
	)

	return nil
}

func (f *Handler) writeVia(ctx context.Context, src io.Reader, dst string) (string, error) {
	var transferComplete bool

	tmpPath := TempPath(dst, uuid.NewString())

	defer func() {
		if !transferComplete {
			f.backend.Remove(context.WithoutCancel(ctx), tmpPath) //nolint:errcheck
		}
	}()

	dstFile, err := f.backend.Create(ctx, tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create dst: %w", err)
	}

	srcHasher := blake3.New()
	dstHasher := blake3.New()

	ctxReader := &contextReader{
		ctx:    ctx,
		reader: io.TeeReader(src, srcHasher),
	}
	multiWriter := io.MultiWriter(dstFile, dstHasher)

	if _, err := io.Copy(multiWriter, ctxReader); err != nil {
		dstFile.Close()

		if errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("canceled: %w", err)
		}

		return "", fmt.Errorf("failed to copy: %w", err)
	}

	if err := dstFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close dst: %w", err)
	}

	srcChecksum := hex.EncodeToString(srcHasher.Sum(nil))
	dstChecksum := hex.EncodeToString(dstHasher.Sum(nil))

	if f.verifyCopies {
		dstChecksum, err = f.checksum(ctx, tmpPath)
		if err != nil {
			return "", fmt.Errorf("failed to verify dst: %w", err)
		}
	}

	if srcChecksum != dstChecksum {
		return "", fmt.Errorf("%w: %s (src) != %s (dst)", ErrHashMismatch, srcChecksum, dstChecksum)
	}

	if err := f.backend.Rename(ctx, tmpPath, dst); err != nil {
		return "", fmt.Errorf("failed to rename tmp file to dst file: %w", err)
	}

	transferComplete = true

	return srcChecksum, nil
}

func (f *Handler) checksum(ctx context.Context, name string) (string, error) {
	r, err := f.backend.Open(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to open: %w", err)
	}
	defer r.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, &contextReader{ctx: ctx, reader: r}); err != nil {
		return "", fmt.Errorf("failed to hash: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
