package logging

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request and attaches a request-scoped
// logger (tagged with the chi request id) to the request context.
func RequestLogger(base *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			l := base
			if id := middleware.GetReqID(r.Context()); id != "" {
				l = base.With("request_id", id)
			}
			r = r.WithContext(WithLogger(r.Context(), l))

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				kv := []interface{}{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).Round(time.Microsecond),
				}
				switch {
				case status >= 500:
					l.Error("request", kv...)
				case status >= 400:
					l.Warn("request", kv...)
				default:
					l.Info("request", kv...)
				}
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
