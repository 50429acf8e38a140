package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request once the response is written.
// 4xx responses log at Warn, 5xx at Error.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "HTTP request completed",
				slog.String(FieldMethod, r.Method),
				slog.String(FieldPath, r.URL.Path),
				slog.Int(FieldStatus, status),
				slog.Int64(FieldDurationMs, time.Since(start).Milliseconds()),
				slog.Int(FieldBytes, ww.BytesWritten()),
				slog.String(FieldRequestID, middleware.GetReqID(r.Context())),
				slog.String(FieldClientIP, r.RemoteAddr),
			)
		})
	}
}
