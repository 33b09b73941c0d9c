package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/Skryldev/image-util/errors"
)

// ErrObjectNotFound is returned by an S3Client for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// S3Client defines the minimal S3 interface used by the store.  This allows
// injection of real aws-sdk-go-v2 clients or test doubles.
type S3Client interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, meta map[string]string) error
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

// S3 is a core.FileStore over an S3-compatible object store.  A path is
// either "key" in the default bucket or "s3://bucket/key".
type S3 struct {
	client S3Client
	bucket string
}

// NewS3 creates an S3 store.  client must not be nil.
func NewS3(client S3Client, defaultBucket string) (*S3, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 storage: client must not be nil")
	}
	return &S3{client: client, bucket: defaultBucket}, nil
}

func (s *S3) locate(op, path string) (bucket, key string, err error) {
	bucket, key = s.bucket, path
	if rest, ok := strings.CutPrefix(path, "s3://"); ok {
		bucket, key, _ = strings.Cut(rest, "/")
	}
	if bucket == "" || key == "" {
		return "", "", apperrors.Newf(apperrors.KindInvalidParameter, op, "bad object path %q", path)
	}
	return bucket, key, nil
}

func (s *S3) get(ctx context.Context, op, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	bucket, key, err := s.locate(op, path)
	if err != nil {
		return nil, err
	}
	rc, err := s.client.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, s.classify(op, path, err)
	}
	return rc, nil
}

func (s *S3) ReadHeader(ctx context.Context, path string, n int) ([]byte, error) {
	rc, err := s.get(ctx, "s3.header", path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	buf := make([]byte, n)
	got, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperrors.Wrap(apperrors.KindNoSuchFile, "s3.header", err)
	}
	return buf[:got], nil
}

func (s *S3) ReadFile(ctx context.Context, path string) ([]byte, error) {
	rc, err := s.get(ctx, "s3.read", path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, "s3.read", err)
	}
	return data, nil
}

func (s *S3) WriteFile(ctx context.Context, path string, data []byte) error {
	const op = "s3.write"
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	bucket, key, err := s.locate(op, path)
	if err != nil {
		return err
	}
	if err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), nil); err != nil {
		return s.classify(op, path, err)
	}
	return nil
}

// Create buffers the object in memory and uploads it on Close.  Objects
// are never visible half-written.
func (s *S3) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	const op = "s3.create"
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if _, _, err := s.locate(op, path); err != nil {
		return nil, err
	}
	return &s3Writer{ctx: context.WithoutCancel(ctx), store: s, path: path}, nil
}

// Remove deletes the object; a missing object is not an error.
func (s *S3) Remove(ctx context.Context, path string) error {
	const op = "s3.remove"
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	bucket, key, err := s.locate(op, path)
	if err != nil {
		return err
	}
	if err := s.client.DeleteObject(ctx, bucket, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return s.classify(op, path, err)
	}
	return nil
}

func (s *S3) classify(op, path string, err error) error {
	if errors.Is(err, ErrObjectNotFound) {
		return apperrors.Newf(apperrors.KindNoSuchFile, op, "%s: %v", path, err)
	}
	return apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
}

type s3Writer struct {
	ctx    context.Context //nolint:containedctx // upload happens in Close
	store  *S3
	path   string
	buf    bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, apperrors.Newf(apperrors.KindInvalidOperation, "s3.write", "writer closed")
	}
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.store.WriteFile(w.ctx, w.path, w.buf.Bytes())
}
