// Package auth resolves the authenticated principal for each request. The
// gateway in front of this service validates credentials and forwards the
// caller's identity in headers; this package only parses and attaches it.
package auth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

// Identity headers set by the upstream gateway.
const (
	HeaderUserID          = "X-User-ID"
	HeaderRole            = "X-User-Role"
	HeaderDepartmentID    = "X-Department-ID"
	HeaderSubDepartmentID = "X-Sub-Department-ID"
)

type contextKey struct{}

// With returns a context carrying the principal.
func With(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// From returns the principal attached to ctx, if any.
func From(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(models.Principal)
	return p, ok
}

// PrincipalFromHeaders parses the identity headers. ok is false when the
// user id or role is absent or malformed.
func PrincipalFromHeaders(h http.Header) (models.Principal, bool) {
	userID, err := strconv.ParseInt(h.Get(HeaderUserID), 10, 64)
	if err != nil || userID <= 0 {
		return models.Principal{}, false
	}
	role := h.Get(HeaderRole)
	if role == "" {
		return models.Principal{}, false
	}
	p := models.Principal{UserID: userID, Role: role}
	// Department scoping headers are optional; a missing or bad value
	// leaves the field zero.
	if v, err := strconv.ParseInt(h.Get(HeaderDepartmentID), 10, 64); err == nil {
		p.DepartmentID = v
	}
	if v, err := strconv.ParseInt(h.Get(HeaderSubDepartmentID), 10, 64); err == nil {
		p.SubDepartmentID = v
	}
	return p, true
}

// Middleware attaches the principal to the request context when the
// identity headers are present and valid. Requests without an identity pass
// through unchanged; handlers that need a principal enforce it themselves,
// since most read routes are open.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFromHeaders(r.Header); ok {
			r = r.WithContext(With(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}
