package httpapi

import (
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/MrEthical07/idrelay"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

const CorrelationIDHeader = "X-Correlation-ID"

const maxCorrelationIDLen = 64

// correlationMiddleware reuses a caller supplied ID or mints an xid, echoes it
// back and stores it with the client IP in the request context.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" || len(id) > maxCorrelationIDLen {
			id = xid.New().String()
		}
		w.Header().Set(CorrelationIDHeader, id)

		ctx := idrelay.WithCorrelationID(r.Context(), id)
		ctx = idrelay.WithClientIP(ctx, clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func loggingMiddleware(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			l := base.With().
				Str("correlation_id", idrelay.CorrelationIDFromContext(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", clientIP(r)).
				Logger()

			ctx := l.WithContext(r.Context())
			ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r.WithContext(ctx))

			// skip healthy liveness probes
			if r.URL.Path == HealthRoute && ww.statusCode < 400 {
				return
			}

			l.Info().
				Int("status", ww.statusCode).
				Dur("duration", time.Since(start)).
				Msg("request.handled")
		})
	}
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				zerolog.Ctx(r.Context()).Error().
					Interface("panic", err).
					Bytes("stack", debug.Stack()).
					Msg("panic.recovered")

				writeError(w, r, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
