package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready   bool `json:"ready"`
	Targets int  `json:"targets"`
}

// Readyz reports ready once at least one target is loaded.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := d.Targets.Count()
		code := http.StatusOK
		if n == 0 {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, readyzResponse{Ready: n > 0, Targets: n})
	}
}
