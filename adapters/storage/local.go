// Package storage provides the core.FileStore used for path inputs and
// outputs.
package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/Skryldev/image-util/errors"
)

// Local reads and writes files on the local filesystem.  It writes only the
// paths it is given; no side files are created.
type Local struct {
	permissions os.FileMode
}

// NewLocal creates a Local file store.  perm 0 means 0644.
func NewLocal(perm os.FileMode) *Local {
	if perm == 0 {
		perm = 0o644
	}
	return &Local{permissions: perm}
}

func (l *Local) ReadHeader(ctx context.Context, path string, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, "local.header", err)
	}
	f, err := l.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	got, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperrors.Wrap(apperrors.KindNoSuchFile, "local.header.read", err)
	}
	return buf[:got], nil
}

func (l *Local) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, "local.read", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, classify("local.read", path, err)
	}
	return data, nil
}

func (l *Local) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidOperation, "local.write", err)
	}
	w, err := l.Create(ctx, path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		_ = os.Remove(path)
		return apperrors.Wrap(apperrors.KindInvalidOperation, "local.write", err)
	}
	if err := w.Close(); err != nil {
		_ = os.Remove(path)
		return apperrors.Wrap(apperrors.KindInvalidOperation, "local.write.close", err)
	}
	return nil
}

func (l *Local) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, "local.create", err)
	}
	if path == "" {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "local.create", "empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, classify("local.create", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.permissions)
	if err != nil {
		return nil, classify("local.create", path, err)
	}
	return f, nil
}

func (l *Local) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidOperation, "local.remove", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return classify("local.remove", path, err)
	}
	return nil
}

func (l *Local) open(path string) (*os.File, error) {
	if path == "" {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "local.open", "empty path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, classify("local.open", path, err)
	}
	return f, nil
}

// classify maps filesystem errors onto error kinds: missing or unreadable
// paths are NoSuchFile.
func classify(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return apperrors.Newf(apperrors.KindNoSuchFile, op, "%s: %v", path, err)
	}
	return apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
}
