package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"predictd/internal/common/fsutil"
	"predictd/internal/model"
)

// Loader turns an identifier into a ready model.
type Loader interface {
	Load(ctx context.Context, id string) (*model.Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id string) (*model.Model, error)

func (f LoaderFunc) Load(ctx context.Context, id string) (*model.Model, error) { return f(ctx, id) }

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidID reports whether id can name an artifact: no path separators, no
// parent references, a conservative charset.
func ValidID(id string) bool {
	return idPattern.MatchString(id) && !strings.Contains(id, "..")
}

// FileLoader reads artifacts named <Dir>/<id><ext> for each supported
// extension in model.Extensions order.
type FileLoader struct {
	Dir string
}

// NewFileLoader resolves dir (expanding a leading ~) to an absolute path.
func NewFileLoader(dir string) (*FileLoader, error) {
	abs, err := fsutil.ResolveDir(dir)
	if err != nil {
		return nil, err
	}
	return &FileLoader{Dir: abs}, nil
}

// Find returns the artifact path for id.
func (l *FileLoader) Find(id string) (string, error) {
	if !ValidID(id) {
		return "", &ModelNotFoundError{ID: id}
	}
	for _, ext := range model.Extensions {
		p := filepath.Join(l.Dir, id+ext)
		fi, err := os.Stat(p)
		if err == nil && fi.Mode().IsRegular() {
			return p, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", &ModelLoadError{ID: id, Err: err}
		}
	}
	return "", &ModelNotFoundError{ID: id}
}

func (l *FileLoader) Load(ctx context.Context, id string) (*model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.Find(id)
	if err != nil {
		return nil, err
	}
	m, err := model.Load(p)
	if err != nil {
		return nil, &ModelLoadError{ID: id, Err: err}
	}
	return m, nil
}

// Available scans Dir for artifacts and returns their identifiers sorted.
// When the same id exists under several extensions it is listed once.
func (l *FileLoader) Available() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !supported(ext) {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if !ValidID(id) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func supported(ext string) bool {
	for _, e := range model.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
