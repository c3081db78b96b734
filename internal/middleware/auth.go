package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AuthCookieName is the cookie the browser client keeps the session token in.
const AuthCookieName = "authToken"

// BearerToken returns the credential carried by the request: a well-formed
// Bearer Authorization header first, then the authToken cookie.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return strings.TrimSpace(c.Cookies(AuthCookieName))
}

// SetAuthCookie stores the session token in a cookie. The browser client
// reads it back and forwards it as a Bearer header, so it is not HTTP-only.
func SetAuthCookie(c *fiber.Ctx, token string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: false,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearAuthCookie expires the session cookie.
func ClearAuthCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: false,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
