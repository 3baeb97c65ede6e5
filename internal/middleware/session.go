package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Page paths used by the session redirect rule.
const (
	PathRoot      = "/"
	PathAuth      = "/auth"
	PathLogin     = "/auth/login"
	PathDashboard = "/dashboard"
)

// RedirectTarget applies the page access rule: "/" is always public,
// signed-out visitors go to the login page unless already under /auth,
// and signed-in users are sent from /auth pages to the dashboard.
func RedirectTarget(path string, hasSession bool) (string, bool) {
	if path == PathRoot {
		return "", false
	}
	underAuth := path == PathAuth || strings.HasPrefix(path, PathAuth+"/")
	switch {
	case !hasSession && !underAuth:
		return PathLogin, true
	case hasSession && underAuth:
		return PathDashboard, true
	}
	return "", false
}

// SessionRedirect guards page routes with RedirectTarget.
func (m *AuthMiddleware) SessionRedirect() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.Session(c)
		hasSession := err == nil
		if target, ok := RedirectTarget(c.Request.URL.Path, hasSession); ok {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		if hasSession {
			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextEmail, claims.Email)
		}
		c.Next()
	}
}
