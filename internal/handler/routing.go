package handler

import (
	"net/http"
	"strings"
)

// Only restricts h to the given methods and answers anything else with a
// JSON 405. GET also admits HEAD.
func Only(h http.HandlerFunc, methods ...string) http.Handler {
	allowed := make(map[string]bool, len(methods)+1)
	for _, m := range methods {
		allowed[m] = true
		if m == http.MethodGet {
			allowed[http.MethodHead] = true
		}
	}
	allow := strings.Join(methods, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowed[r.Method] {
			w.Header().Set("Allow", allow)
			RespondAppError(w, ErrMethodNotAllowed, nil)
			return
		}
		h(w, r)
	})
}

// NotFound is the JSON catch-all for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	RespondAppError(w, ErrRouteNotFound, nil)
}
