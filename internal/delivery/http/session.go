package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// SessionCookie carries the browser session id
	SessionCookie = "farmbud_session"
	// SessionHeader lets non-browser clients pass the session id
	SessionHeader = "X-Session-ID"

	sessionLocal = "session_id"
)

// SessionMiddleware makes sure every request has a session id, issuing a
// cookie for new browsers.
func SessionMiddleware(ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(SessionHeader)
		if id == "" {
			id = c.Cookies(SessionCookie)
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(ttl),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(sessionLocal, id)
		c.Set(SessionHeader, id)
		return c.Next()
	}
}

// sessionID returns the id set by SessionMiddleware
func sessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(sessionLocal).(string)
	return id
}
