package e2e

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/events"
	"predictd/internal/history"
	"predictd/internal/httpapi"
	"predictd/internal/inference"
	"predictd/internal/model"
	"predictd/internal/pipeline"
	"predictd/internal/registry"
	"predictd/internal/staging"
)

const (
	// Red images score high on both models.
	tongueArtifact = `{"kind":"logistic","input":{"width":8,"height":8,"grid":1},"weights":[4,0,0],"bias":-2}`
	nailArtifact   = `{"kind":"logistic","input":{"width":8,"height":8,"grid":1},"weights":[0,0,4],"bias":-2,"labels":{"positive":"prediabet","negative":"non_diabet"}}`
)

// stack is a full server over real staging, registry, pool and history.
type stack struct {
	srv      *httptest.Server
	tempDir  string
	pool     *inference.Pool
	history  *history.Store
	registry *registry.Registry
	events   *events.Memory
	loads    *atomic.Int32
}

type stackConfig struct {
	pool      inference.PoolOptions
	loadDelay time.Duration
}

// createTempModelsDir writes the given artifacts keyed by file name.
func createTempModelsDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

func newStack(t *testing.T, modelsDir string, sc stackConfig) *stack {
	t.Helper()
	if sc.pool.Workers == 0 {
		sc.pool = inference.PoolOptions{Workers: 2, QueueDepth: 16, MaxWait: 2 * time.Second}
	}
	fl, err := registry.NewFileLoader(modelsDir)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	loads := &atomic.Int32{}
	loader := registry.LoaderFunc(func(ctx context.Context, id string) (*model.Model, error) {
		loads.Add(1)
		if sc.loadDelay > 0 {
			time.Sleep(sc.loadDelay)
		}
		return fl.Load(ctx, id)
	})
	tempDir := filepath.Join(t.TempDir(), "uploads")
	st, err := staging.New(tempDir, staging.Options{MaxBytes: 1 << 20})
	if err != nil {
		t.Fatalf("staging: %v", err)
	}
	hs, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	mem := events.NewMemory()
	reg := registry.New(loader, registry.Options{Publisher: mem, Logger: zerolog.Nop()})
	pool := inference.NewPool(sc.pool)
	p := pipeline.New(pipeline.Options{
		Staging:        st,
		Registry:       reg,
		Executor:       inference.NewExecutor(inference.Options{}),
		Pool:           pool,
		Catalog:        fl,
		History:        hs,
		TongueModel:    "lidah_model",
		NailModel:      "kuku_model",
		RequiredModels: []string{"lidah_model", "kuku_model"},
	})
	srv := httptest.NewServer(httpapi.NewMux(p))
	t.Cleanup(func() {
		srv.Close()
		pool.Close()
		_ = hs.Close()
	})
	return &stack{srv: srv, tempDir: tempDir, pool: pool, history: hs, registry: reg, events: mem, loads: loads}
}

// assertTempEmpty fails when any staged file outlived its request.
func (s *stack) assertTempEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("temp dir not empty: %v", names)
	}
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type filePart struct {
	field, name string
	data        []byte
}

func httpPostMultipart(t *testing.T, url string, fields map[string]string, files ...filePart) (*http.Response, []byte) {
	t.Helper()
	resp, body, err := postMultipart(url, fields, files...)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp, body
}

// postMultipart is safe to call from goroutines other than the test's.
func postMultipart(url string, fields map[string]string, files ...filePart) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, nil, err
		}
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			return nil, nil, err
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body, nil
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
