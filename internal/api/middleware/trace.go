package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/cohort-api/internal/api/shared"
	"github.com/phrazzld/cohort-api/internal/platform/logger"
)

// TraceMiddleware adds a trace ID to the request context and echoes it on
// the response. An incoming X-Trace-ID header is reused when it is well
// formed. Handlers further down the chain get a logger carrying the ID via
// logger.FromContext.
func TraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.WithTraceID(r.Context(), r.Header.Get(shared.TraceIDHeader))
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithRequestID(ctx, traceID)
			ctx = logger.WithLogger(ctx, log)

			w.Header().Set(shared.TraceIDHeader, traceID)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
