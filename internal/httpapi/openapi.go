package httpapi

import (
	"net/http"

	"github.com/swaggo/swag"

	_ "predictd/internal/httpapi/docs"
)

// openAPI serves the registered Swagger document.
func openAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "api documentation unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
