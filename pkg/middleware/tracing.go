package middleware

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/tracing"
)

// Tracing opens a root span per request, keyed by the request id, and logs
// the span tree once the handler returns. It must run inside RequestID.
func Tracing(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+r.URL.Path, logger.RequestID(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
			span.End()
			span.Log(logger.FromContext(ctx).With("component", "tracing"))
		})
	}
}
