//go:build !swagger

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// Without the swagger tag the UI is not mounted, while the JSON document
// stays available.
func TestMountSwagger_StubServesNoUI(t *testing.T) {
	mux := NewMux(&mockService{})

	w := serve(mux, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("/swagger/index.html status=%d, want 404", w.Code)
	}
	w = serve(mux, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/openapi.json status=%d", w.Code)
	}
}
