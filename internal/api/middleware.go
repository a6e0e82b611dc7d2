package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/intermernet/matchday/internal/auth"
)

// sessionMiddleware resolves the principal of every request without
// rejecting any. The token is taken from the session cookie, then the
// Authorization header, then the 'token' query parameter (used by the SSE
// stream, where browsers cannot set headers). A token that fails validation
// leaves the request anonymous and records why, so that workflows can
// report an expired session instead of a bare login prompt.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := sessionToken(r, s.config.SessionCookieName)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		claims, err := auth.ValidateJWT(tokenString, s.config.JwtSecret)
		if err != nil {
			s.requestLog(r).WithError(err).Debug("rejected session token")
			ctx = auth.WithSessionError(ctx, err)
		} else {
			ctx = auth.WithPrincipal(ctx, auth.Principal{UserID: claims.UserID, Email: claims.Email})
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	headerParts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(headerParts) == 2 && strings.ToLower(headerParts[0]) == "bearer" {
		return headerParts[1]
	}
	return r.URL.Query().Get("token")
}

// requestLogger logs one line per request at INFO, or WARN for 5xx.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			entry := s.requestLog(r).WithFields(logrus.Fields{
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("request completed")
				return
			}
			entry.Info("request completed")
		}()
		next.ServeHTTP(ww, r)
	})
}

// requestLog returns a logger annotated with the request's identity.
func (s *Server) requestLog(r *http.Request) logrus.FieldLogger {
	fields := logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fields["request_id"] = id
	}
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		fields["user_id"] = p.UserID
	}
	return s.log.WithFields(fields)
}
