package auth

import (
	"context"
	"errors"
	"net/http"

	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/logger"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	SessionName = "gatherly-session"

	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
	userName  = "user_name"
	userEmail = "user_email"

	sessionMaxAge = 14 * 24 * 60 * 60
)

// SessionUser is cached in the session cookie and injected into the request
// context.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

func WithUser(ctx context.Context, u *SessionUser) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

func CurrentUser(ctx context.Context) (*SessionUser, bool) {
	u, ok := ctx.Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// RequireUser returns the signed-in user or an Unauthorized AppError.
func RequireUser(r *http.Request) (*SessionUser, error) {
	if u, ok := CurrentUser(r.Context()); ok {
		return u, nil
	}
	return nil, apperrors.Unauthorized("Authentication required")
}

type Sessions struct {
	store sessions.Store
	log   *logger.Logger
}

func NewSessions(secret []byte, secure bool, log *logger.Logger) *Sessions {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store, log: log}
}

func (s *Sessions) get(r *http.Request) *sessions.Session {
	sess, err := s.store.Get(r, SessionName)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			s.log.Debug("discarding undecodable session cookie", "error", err)
		} else {
			s.log.Warn("failed to load session", "error", err)
		}
	}
	return sess
}

// LoadSessionUser injects the session user into the request context when the
// cookie carries an authenticated session.
func (s *Sessions) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.get(r)
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			u := &SessionUser{
				ID:    getString(sess, userIDKey),
				Email: getString(sess, userEmail),
				Name:  getString(sess, userName),
			}
			if u.ID != "" {
				r = r.WithContext(WithUser(r.Context(), u))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, u *SessionUser) error {
	sess := s.get(r)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userEmail] = u.Email
	sess.Values[userName] = u.Name
	if err := sess.Save(r, w); err != nil {
		return apperrors.Internal("Failed to save session", err)
	}
	return nil
}

func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := s.get(r)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return apperrors.Internal("Failed to clear session", err)
	}
	return nil
}

func getString(sess *sessions.Session, key string) string {
	v, _ := sess.Values[key].(string)
	return v
}
