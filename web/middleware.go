// Package web exposes the library over HTTP: form-encoded mutations,
// query-parameter search, multipart CSV import and CSV attachment export.
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elango738/Library-Management-System/library"
)

// SessionCookie carries the opaque session token issued at login.
const SessionCookie = "library_session"

// userKey is the gin context key the resolved user is stored under.
const userKey = "library_current_user"

// Auth resolves the session cookie (when present) into a user and stores it
// in the request context. It never rejects: public routes run with a nil
// user, and the Require* middlewares fail closed where login is mandatory.
func Auth(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}
		user, err := mgr.ResolveSession(token)
		if err != nil {
			// Stale cookie; treat as anonymous.
			c.Next()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user for this request, or nil.
func CurrentUser(c *gin.Context) *library.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*library.User)
	return user
}

// RequireUser aborts with 401 unless a user is logged in.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin aborts with 401 for anonymous callers and 403 for
// non-admins.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
