package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/server/auth"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// UserIDFromContext returns the subject stored by the auth gate.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// authenticate admits requests carrying a valid bearer token and stores its
// subject in the context. Preflight OPTIONS requests pass untouched.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(r.Header.Get(common.AuthorizationHeaderName), " ")
		if !ok || !strings.EqualFold(scheme, common.BearerScheme) || strings.TrimSpace(token) == "" {
			s.logger.Debug(r.Context(), "missing or malformed authorization header")
			writeMessage(w, http.StatusUnauthorized, msgAuthFailed)
			return
		}

		userID, err := auth.GetUserIDFromToken(strings.TrimSpace(token), s.jwtSecret)
		if err != nil {
			s.logger.Debug(r.Context(), "token rejected", "error", err)
			writeMessage(w, http.StatusUnauthorized, msgAuthFailed)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs every completed request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "Request completed",
			"req_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"bytes_written", ww.BytesWritten(),
			"latency", time.Since(start),
		)
	})
}
