package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	perr "archivist/internal/platform/errors"
)

// Local is the local filesystem
type Local struct{}

// localPath strips file:// or file: from uri
func localPath(uri string) string {
	if p, ok := strings.CutPrefix(uri, "file://"); ok {
		return p
	}
	if p, ok := strings.CutPrefix(uri, "file:"); ok {
		return p
	}
	return uri
}

func (Local) List(_ context.Context, pattern string) ([]string, error) {
	matches, err := filepath.Glob(localPath(pattern))
	if err != nil {
		return nil, perr.InvalidArgf("source: bad pattern %q: %v", pattern, err)
	}
	out := matches[:0]
	for _, m := range matches {
		if st, err := os.Stat(m); err == nil && st.Mode().IsRegular() {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (Local) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	f, err := os.Open(localPath(uri))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perr.NotFoundf("source: %s does not exist", uri)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "source: open %s", uri)
	}
	return f, nil
}

// Create makes parent directories as needed and truncates an existing file
func (Local) Create(_ context.Context, uri string) (io.WriteCloser, error) {
	p := localPath(uri)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "source: mkdir for %s", uri)
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "source: create %s", uri)
	}
	return f, nil
}
