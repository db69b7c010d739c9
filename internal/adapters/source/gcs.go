package source

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	perr "archivist/internal/platform/errors"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// bucketAPI is the slice of the GCS client the source needs
type bucketAPI interface {
	Names(ctx context.Context, bucket, prefix string) ([]string, error)
	Reader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	Writer(ctx context.Context, bucket, object string) io.WriteCloser
	Close() error
}

// GCS lists and streams objects in Google Cloud Storage
type GCS struct {
	api bucketAPI
}

var newStorageClient = storage.NewClient

// NewGCS creates the storage client; credentials come from the environment unless cfg overrides them
func NewGCS(ctx context.Context, cfg Config) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := newStorageClient(ctx, opts...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "source: gcs client")
	}
	return &GCS{api: clientAPI{c: c}}, nil
}

// splitGS splits gs://bucket/object into its parts
func splitGS(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", perr.InvalidArgf("source: %q is not a gs:// uri", uri)
	}
	bucket, object, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", perr.InvalidArgf("source: %q has no bucket", uri)
	}
	return bucket, object, nil
}

// List lists objects under the literal prefix of pattern and keeps those matching it
func (g *GCS) List(ctx context.Context, pattern string) ([]string, error) {
	bucket, objPattern, err := splitGS(pattern)
	if err != nil {
		return nil, err
	}
	prefix := objPattern
	if i := globStart(objPattern); i >= 0 {
		prefix = objPattern[:i]
	}
	if _, err := path.Match(objPattern, ""); err != nil {
		return nil, perr.InvalidArgf("source: bad pattern %q: %v", pattern, err)
	}

	names, err := g.api.Names(ctx, bucket, prefix)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "source: list gs://%s/%s", bucket, prefix)
	}
	var out []string
	for _, n := range names {
		if ok, _ := path.Match(objPattern, n); ok {
			out = append(out, "gs://"+bucket+"/"+n)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (g *GCS) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, object, err := splitGS(uri)
	if err != nil {
		return nil, err
	}
	r, err := g.api.Reader(ctx, bucket, object)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, perr.NotFoundf("source: %s does not exist", uri)
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "source: open %s", uri)
	}
	return r, nil
}

// Create returns a writer; the object becomes visible when the writer is closed
func (g *GCS) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	bucket, object, err := splitGS(uri)
	if err != nil {
		return nil, err
	}
	return g.api.Writer(ctx, bucket, object), nil
}

func (g *GCS) Close() error { return g.api.Close() }

// clientAPI adapts *storage.Client to bucketAPI
type clientAPI struct{ c *storage.Client }

func (a clientAPI) Names(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := a.c.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}
}

func (a clientAPI) Reader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return a.c.Bucket(bucket).Object(object).NewReader(ctx)
}

func (a clientAPI) Writer(ctx context.Context, bucket, object string) io.WriteCloser {
	w := a.c.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"
	return w
}

func (a clientAPI) Close() error { return a.c.Close() }
