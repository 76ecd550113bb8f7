// Package staging persists uploaded inputs into a scratch directory for the
// duration of one request and removes them afterwards.
package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"predictd/internal/common/fsutil"
)

// Upload is a staged input file. It is owned by exactly one request.
type Upload struct {
	ID        string
	Path      string
	Name      string
	Owner     string
	Size      int64
	CreatedAt time.Time

	released atomic.Bool
}

// Released reports whether Release has already removed the file.
func (u *Upload) Released() bool { return u.released.Load() }

// Options tune a Manager.
type Options struct {
	// MaxBytes caps a single upload; zero means unlimited.
	MaxBytes int64
	Logger   zerolog.Logger
}

// Manager allocates files under a fixed root and tracks live uploads.
type Manager struct {
	root     string
	maxBytes int64
	log      zerolog.Logger

	mu     sync.Mutex
	active map[string]*Upload
}

// New ensures root exists and returns a Manager confined to it.
func New(root string, opts Options) (*Manager, error) {
	abs, err := fsutil.ResolveDir(root)
	if err != nil {
		return nil, &StorageError{Op: "resolve", Path: root, Err: err}
	}
	if err := fsutil.EnsureDir(abs); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: abs, Err: err}
	}
	return &Manager{
		root:     abs,
		maxBytes: opts.MaxBytes,
		log:      opts.Logger,
		active:   make(map[string]*Upload),
	}, nil
}

// Root returns the absolute temp root.
func (m *Manager) Root() string { return m.root }

// MaxBytes returns the configured per-upload limit.
func (m *Manager) MaxBytes() int64 { return m.maxBytes }

// Stage copies r into a new file under the root. A partially written file
// is removed before an error is returned.
func (m *Manager) Stage(ctx context.Context, owner, name string, r io.Reader) (*Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	p := filepath.Join(m.root, id+safeExt(name))
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, &StorageError{Op: "create", Path: p, Err: err}
	}

	src := io.Reader(&ctxReader{ctx: ctx, r: r})
	if m.maxBytes > 0 {
		src = io.LimitReader(src, m.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(p)
		if errors.Is(copyErr, context.Canceled) || errors.Is(copyErr, context.DeadlineExceeded) {
			return nil, copyErr
		}
		return nil, &StorageError{Op: "write", Path: p, Err: copyErr}
	case closeErr != nil:
		_ = os.Remove(p)
		return nil, &StorageError{Op: "close", Path: p, Err: closeErr}
	case m.maxBytes > 0 && n > m.maxBytes:
		_ = os.Remove(p)
		return nil, &StorageError{Op: "write", Path: p, Err: fmt.Errorf("%w (%d bytes)", ErrTooLarge, m.maxBytes)}
	}

	up := &Upload{ID: id, Path: p, Name: name, Owner: owner, Size: n, CreatedAt: time.Now()}
	m.mu.Lock()
	m.active[id] = up
	m.mu.Unlock()
	m.log.Debug().Str("upload", id).Str("owner", owner).Int64("bytes", n).Msg("staged upload")
	return up, nil
}

// StageBytes stages an in-memory payload.
func (m *Manager) StageBytes(ctx context.Context, owner, name string, data []byte) (*Upload, error) {
	return m.Stage(ctx, owner, name, bytes.NewReader(data))
}

// Release deletes the staged file. Releasing a nil, already released or
// already missing upload is a no-op. A failed remove leaves the upload
// tracked so Release can be retried.
func (m *Manager) Release(up *Upload) error {
	if up == nil || up.released.Load() {
		return nil
	}
	if err := os.Remove(up.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &StorageError{Op: "remove", Path: up.Path, Err: err}
	}
	if !up.released.CompareAndSwap(false, true) {
		return nil
	}
	m.mu.Lock()
	delete(m.active, up.ID)
	m.mu.Unlock()
	m.log.Debug().Str("upload", up.ID).Str("owner", up.Owner).Msg("released upload")
	return nil
}

// Active returns the number of uploads not yet released.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Sweep removes regular files in the root that are not tracked and were
// last modified before olderThan ago. It clears leftovers of a previous
// process and returns how many files were removed.
func (m *Manager) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0, &StorageError{Op: "readdir", Path: m.root, Err: err}
	}
	cutoff := time.Now().Add(-olderThan)
	m.mu.Lock()
	tracked := make(map[string]struct{}, len(m.active))
	for _, up := range m.active {
		tracked[filepath.Base(up.Path)] = struct{}{}
	}
	m.mu.Unlock()

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := tracked[e.Name()]; ok {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.root, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		m.log.Info().Int("files", removed).Str("root", m.root).Msg("swept stale uploads")
	}
	return removed, nil
}

// safeExt keeps a short alphanumeric extension from the client file name so
// staged files stay recognizable; anything else is dropped.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

// ctxReader aborts a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
