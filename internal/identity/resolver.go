package identity

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/copyforge-platform/copyforge/internal/auth"
	"github.com/copyforge-platform/copyforge/internal/metering"
	"github.com/copyforge-platform/copyforge/internal/session"
	"github.com/copyforge-platform/copyforge/internal/users"
)

// SessionCookie carries the anonymous session token between requests.
const SessionCookie = "cf_session"

type contextKey string

const subjectKey contextKey = "metering_subject"

// Resolver maps an incoming request to a metering subject. A valid bearer
// token resolves to the user's durable identity; anything else, including a
// missing or expired token, falls back to an anonymous session identity so
// the request is never rejected at this stage.
type Resolver struct {
	jwtManager   *auth.JWTManager
	userSvc      *users.Service
	ledgerStore  metering.LedgerStore
	sessionStore *session.Store
	secureCookie bool
}

func NewResolver(jwtManager *auth.JWTManager, userSvc *users.Service, ledgerStore metering.LedgerStore, sessionStore *session.Store, secureCookie bool) *Resolver {
	return &Resolver{
		jwtManager:   jwtManager,
		userSvc:      userSvc,
		ledgerStore:  ledgerStore,
		sessionStore: sessionStore,
		secureCookie: secureCookie,
	}
}

// Resolve returns the subject for the request. When it falls back to an
// anonymous session without an existing cookie, it mints a token and sets
// the cookie on the response.
func (rs *Resolver) Resolve(w http.ResponseWriter, r *http.Request) metering.Subject {
	if subject := rs.resolveUser(r); subject != nil {
		return subject
	}
	return rs.resolveSession(w, r)
}

func (rs *Resolver) resolveUser(r *http.Request) metering.Subject {
	token, ok := auth.BearerToken(r)
	if !ok {
		return nil
	}

	claims, err := rs.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil
	}

	user, err := rs.userSvc.GetByID(r.Context(), userID)
	if err != nil {
		slog.Error("resolving user identity", "error", err)
		return nil
	}
	if user == nil {
		return nil
	}

	return &metering.DurableSubject{
		UserID:   user.ID,
		PlanTier: user.Plan,
		Store:    rs.ledgerStore,
	}
}

func (rs *Resolver) resolveSession(w http.ResponseWriter, r *http.Request) metering.Subject {
	var token string
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		token = cookie.Value
	} else {
		token = session.NewToken()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   rs.secureCookie,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(rs.sessionStore.TTL().Seconds()),
		})
	}

	return &metering.EphemeralSubject{
		Token: token,
		Store: rs.sessionStore,
	}
}

// Middleware resolves the subject once per request and stores it in the
// request context for downstream handlers.
func (rs *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := rs.Resolve(w, r)
		ctx := context.WithValue(r.Context(), subjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSubject returns the subject placed in the context by Middleware, or
// nil when the middleware did not run.
func GetSubject(ctx context.Context) metering.Subject {
	subject, _ := ctx.Value(subjectKey).(metering.Subject)
	return subject
}

// WithSubject returns a context carrying the given subject. Handlers are
// normally fed by Middleware; this exists for tests and internal callers.
func WithSubject(ctx context.Context, subject metering.Subject) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}
