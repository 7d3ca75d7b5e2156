package delivery

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Vovarama1992/voicenotes/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MetricsMiddleware records every request under its chi route pattern so
// that /recording/{id} stays a single series.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			// the live channel is long-lived and hijacked
			if r.URL.Path == "/ws" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			endpoint := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					endpoint = p
				}
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(status), time.Since(start).Seconds())
		})
	}
}
