package notifier

import (
	"fmt"
	"net/http"

	"github.com/ceodesk/errnotify/internal/report"
)

// Middleware recovers panics in next, emails an alert describing the request
// that triggered it and answers with a generic 500.
func (n *Notifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				errContext := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
				n.Notify(r.Context(), report.NewPanicError(p), errContext)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal_server_error","message":"An unexpected error occurred"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
