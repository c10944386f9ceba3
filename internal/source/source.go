// Package source resolves an analysis target to a local file and enforces
// the input constraints before any decoding starts.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/keagan/reelscore/internal/media"
	"github.com/keagan/reelscore/pkg/util"
)

const gcsScheme = "gs://"

var (
	ErrInvalidSource   = errors.New("invalid source")
	ErrNotFound        = errors.New("source not found")
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("source exceeds size limit")
)

// Constraints bound what the pipeline accepts. Zero values disable a check.
type Constraints struct {
	AllowedMIMETypes []string
	MaxBytes         int64
}

// Check validates a media type and byte size
func (c Constraints) Check(mimeType string, size int64) error {
	if len(c.AllowedMIMETypes) > 0 && !c.allows(mimeType) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if c.MaxBytes > 0 && size > c.MaxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, size, c.MaxBytes)
	}
	return nil
}

func (c Constraints) allows(mimeType string) bool {
	for _, t := range c.AllowedMIMETypes {
		if strings.EqualFold(t, mimeType) {
			return true
		}
	}
	return false
}

// Resolved is a local file ready for the pipeline
type Resolved struct {
	URI   string
	Input media.Input
	Size  int64
	// Cleanup removes any downloaded copy; safe to call on local sources.
	Cleanup func()
}

// Resolver turns URIs into local files
type Resolver struct {
	logger      zerolog.Logger
	tempDir     string
	constraints Constraints
	objects     ObjectStore
}

// Option customizes a Resolver
type Option func(*Resolver)

// WithObjectStore enables gs:// sources
func WithObjectStore(store ObjectStore) Option {
	return func(r *Resolver) {
		r.objects = store
	}
}

func NewResolver(logger zerolog.Logger, tempDir string, constraints Constraints, opts ...Option) *Resolver {
	r := &Resolver{
		logger:      logger.With().Str("component", "source").Logger(),
		tempDir:     tempDir,
		constraints: constraints,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates uri and returns a local copy of it
func (r *Resolver) Resolve(ctx context.Context, uri string) (*Resolved, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidSource)
	}
	if strings.HasPrefix(uri, gcsScheme) {
		return r.resolveObject(ctx, uri)
	}
	return r.resolveLocal(uri)
}

func (r *Resolver) resolveLocal(p string) (*Resolved, error) {
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidSource, p)
	}

	mimeType := util.MIMETypeFromPath(p)
	if err := r.constraints.Check(mimeType, info.Size()); err != nil {
		return nil, err
	}

	return &Resolved{
		URI:     p,
		Input:   media.Input{Path: p, Name: filepath.Base(p), MIMEType: mimeType},
		Size:    info.Size(),
		Cleanup: func() {},
	}, nil
}

func (r *Resolver) resolveObject(ctx context.Context, uri string) (*Resolved, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	if r.objects == nil {
		return nil, fmt.Errorf("%w: object storage not configured for %s", ErrInvalidSource, uri)
	}

	attrs, err := r.objects.Stat(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	mimeType := attrs.ContentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = util.MIMETypeFromPath(object)
	}
	if err := r.constraints.Check(mimeType, attrs.Size); err != nil {
		return nil, err
	}

	if err := util.EnsureDir(r.tempDir); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	f, err := util.TempFile(r.tempDir, "source_", util.GetExtension(object))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	local := f.Name()

	r.logger.Debug().
		Str("bucket", bucket).
		Str("object", object).
		Int64("bytes", attrs.Size).
		Msg("downloading source object")

	n, err := r.objects.Download(ctx, bucket, object, f)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		util.CleanupFiles(local)
		return nil, fmt.Errorf("download %s: %w", uri, err)
	}

	return &Resolved{
		URI:     uri,
		Input:   media.Input{Path: local, Name: path.Base(object), MIMEType: mimeType},
		Size:    n,
		Cleanup: func() { util.CleanupFiles(local) },
	}, nil
}

// ParseGCSURI splits gs://bucket/object
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, gcsScheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %s is not a gs:// uri", ErrInvalidSource, uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", fmt.Errorf("%w: %s must name a bucket and object", ErrInvalidSource, uri)
	}
	return bucket, object, nil
}
