package middleware

import (
	"strings"
	"time"

	"votedesk/internal/config"
	"votedesk/internal/core/domain"
	"votedesk/internal/core/flow"
	"votedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	SessionCookie = "sid"
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"

	sessionKey = "session"
)

// Session resolves the browser session from the sid cookie, creating one
// when absent, and keeps the token cookies in step with the session
func Session(registry *flow.Registry, cfg *config.Config) fiber.Handler {
	cookies := cookieWriter{cfg: cfg}

	return func(c *fiber.Ctx) error {
		sid := c.Cookies(SessionCookie)
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
			cookies.set(c, SessionCookie, sid, 0)
		}

		// Access token: cookie first, then Authorization header
		accessToken := c.Cookies(AccessCookie)
		if accessToken == "" {
			if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
				accessToken = strings.TrimPrefix(header, "Bearer ")
			}
		}
		refreshToken := c.Cookies(RefreshCookie)

		session, _ := registry.Open(c.UserContext(), sid, accessToken, refreshToken)
		c.Locals(sessionKey, session)
		response.AttachNotifications(c, func() interface{} {
			if notes := session.Notifications.Drain(); len(notes) > 0 {
				return notes
			}
			return nil
		})

		err := c.Next()

		access, refresh := session.Context.Tokens()
		switch {
		case access != "" && access != c.Cookies(AccessCookie):
			cookies.set(c, AccessCookie, access, cfg.JWT.AccessTokenMins*60)
			cookies.set(c, RefreshCookie, refresh, cfg.JWT.RefreshTokenDays*24*60*60)
		case access == "" && (c.Cookies(AccessCookie) != "" || c.Cookies(RefreshCookie) != ""):
			cookies.clear(c, AccessCookie)
			cookies.clear(c, RefreshCookie)
		}
		return err
	}
}

// SessionFrom returns the session resolved by the Session middleware
func SessionFrom(c *fiber.Ctx) *flow.Session {
	s, _ := c.Locals(sessionKey).(*flow.Session)
	return s
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := SessionFrom(c)
		if session == nil {
			return response.Unauthorized(c, "Session required")
		}

		role := session.Context.Role()
		if role == domain.RoleNone {
			return response.Unauthorized(c, "Sign in required")
		}
		for _, allowed := range allowedRoles {
			if role == allowed {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// VoterOnly allows only signed-in voters
func VoterOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleVoter)
}

// AdminOnly allows only the administrator
func AdminOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin)
}

type cookieWriter struct {
	cfg *config.Config
}

func (w cookieWriter) set(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   w.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: w.cfg.Cookie.SameSite,
		Domain:   w.cfg.Cookie.Domain,
	})
}

func (w cookieWriter) clear(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-1 * time.Hour),
		Secure:   w.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: w.cfg.Cookie.SameSite,
		Domain:   w.cfg.Cookie.Domain,
	})
}
