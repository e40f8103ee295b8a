package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"specboard/internal/httputil"
)

// Recovery turns a handler panic into a 500 problem response and logs the
// stack with the request id. http.ErrAbortHandler is re-raised so the server
// can abort the connection as intended.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer recoverPanic(w, r, logger)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverPanic(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	rec := recover()
	if rec == nil {
		return
	}
	if rec == http.ErrAbortHandler {
		panic(rec)
	}

	logger.Error("handler panicked",
		"panic", rec,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", httputil.GetRequestID(r.Context()),
		"stack", string(debug.Stack()),
	)
	httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
}
