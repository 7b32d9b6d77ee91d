// Package corpus loads the knowledge text, splits it into section-aware
// chunks and keeps the embedded index for the lifetime of the process.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"menu-qa/internal/shared"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Source supplies the raw corpus text.
type Source interface {
	Load(ctx context.Context) (string, error)
	Name() string
}

type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Load(_ context.Context) (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", errors.Join(shared.ErrCorpusLoad, err)
	}
	return string(b), nil
}

func (f *FileSource) Name() string { return f.Path }

// GCSSource reads the corpus from a Cloud Storage object.
type GCSSource struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSSource parses a gs://bucket/object URI. credentialsFile may be empty
// to use application default credentials.
func NewGCSSource(ctx context.Context, uri, credentialsFile string) (*GCSSource, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed creating storage client: %w", err)
	}
	return &GCSSource{client: client, bucket: bucket, object: object}, nil
}

func (g *GCSSource) Load(ctx context.Context) (string, error) {
	r, err := g.client.Bucket(g.bucket).Object(g.object).NewReader(ctx)
	if err != nil {
		return "", errors.Join(shared.ErrCorpusLoad, err)
	}
	defer func() {
		_ = r.Close()
	}()
	b, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Join(shared.ErrCorpusLoad, err)
	}
	return string(b), nil
}

func (g *GCSSource) Name() string { return "gs://" + g.bucket + "/" + g.object }

func (g *GCSSource) Close() error { return g.client.Close() }

// ParseGCSURI splits gs://bucket/path/to/object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs uri needs a bucket and an object: %q", uri)
	}
	return bucket, object, nil
}

// IsGCSURI reports whether the corpus location points at Cloud Storage.
func IsGCSURI(location string) bool {
	return strings.HasPrefix(location, "gs://")
}
