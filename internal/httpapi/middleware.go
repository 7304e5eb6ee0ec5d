package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/UkralStul/blog-service/internal/auth"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/errmsg"
	"github.com/UkralStul/blog-service/internal/storage"
)

// loginLimit allows limit requests per minute from one client IP and
// answers the rest with 429 in the API's error shape.
func loginLimit(limit int) func(http.Handler) http.Handler {
	return httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, &domain.APIError{
				Message:    "Request rate limit reached",
				Status:     http.StatusTooManyRequests,
				StatusText: http.StatusText(http.StatusTooManyRequests),
			}, errmsg.Generic)
		}),
	)
}

type sessionKey struct{}

// requireSession resolves the bearer token into a session and rejects the
// request when there is none.
func requireSession(provider auth.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(w, domain.ErrUnauthorized("not authenticated"), errmsg.Generic)
				return
			}

			session, err := provider.Session(r.Context(), token)
			if err != nil {
				respondError(w, err, errmsg.Generic)
				return
			}
			session.AccessToken = token

			ctx := context.WithValue(r.Context(), sessionKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func sessionFrom(r *http.Request) *domain.Session {
	session, _ := r.Context().Value(sessionKey{}).(*domain.Session)
	return session
}

// callerFrom is the identity mutations run as. Only valid behind
// requireSession.
func callerFrom(r *http.Request) storage.Caller {
	session := sessionFrom(r)
	return storage.Caller{UserID: session.User.ID, AccessToken: session.AccessToken}
}
