package app

import (
	"net/http"

	"gatherly/pkg/auth"
	"gatherly/pkg/middleware"
)

// UserOrIPKey buckets signed-in requests per user and anonymous ones per
// client IP.
func UserOrIPKey(r *http.Request) string {
	if u, ok := auth.CurrentUser(r.Context()); ok {
		return "user:" + u.ID
	}
	return middleware.ClientIPKey(r)
}

// UserScope keeps idempotency keys from colliding across users.
func UserScope(r *http.Request) string {
	return UserOrIPKey(r)
}
