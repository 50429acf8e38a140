package webutil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/storage"
)

// AppHandler represents a handler function that returns an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to the standard http.HandlerFunc signature.
// Returned errors are logged and rendered as a JSON failure envelope.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handler(w, r)
		if err == nil {
			return
		}

		var httpErr *HTTPError
		switch {
		case errors.As(err, &httpErr):
			logLevel := slog.LevelWarn // client errors are warnings server-side
			if httpErr.Code >= 500 {
				logLevel = slog.LevelError
			}
			slog.Log(r.Context(), logLevel, "Client error response",
				"code", httpErr.Code,
				"msg", httpErr.Message,
				"cause", errors.Unwrap(httpErr),
				"path", r.URL.Path,
				"method", r.Method,
			)

		case errors.Is(err, storage.ErrNotFound):
			httpErr = NewHTTPErrorWrap(http.StatusNotFound, msgNotFound, err)
			slog.InfoContext(r.Context(), "Resource not found", "path", r.URL.Path, "method", r.Method, "error", err)

		default:
			httpErr = NewHTTPErrorWrap(http.StatusInternalServerError, msgInternalServer, err)
			slog.ErrorContext(r.Context(), "Unhandled internal error", "path", r.URL.Path, "method", r.Method, "error", err)
		}

		if HasResponseWriterSentHeader(w) {
			slog.WarnContext(r.Context(), "Handler returned error after writing response header",
				"path", r.URL.Path,
				"method", r.Method,
				"error", err,
			)
			return
		}

		RespondWithError(w, httpErr)
	}
}
