package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

// SessionCarrier binds session tokens to the HTTP exchange.
//
// Extraction reads the cookie first and falls back to an Authorization bearer header.
type SessionCarrier struct {
	ttl    time.Duration
	secure bool
}

// NewSessionCarrier builds a carrier whose cookies live as long as tokens do.
func NewSessionCarrier(ttl time.Duration, secure bool) *SessionCarrier {
	return &SessionCarrier{ttl: ttl, secure: secure}
}

// Set attaches the session cookie to the response.
func (s *SessionCarrier) Set(c *fiber.Ctx, token string) {
	cookie := s.cookie(token)
	cookie.MaxAge = int(s.ttl / time.Second)
	cookie.Expires = time.Now().Add(s.ttl)
	c.Cookie(cookie)
}

// Clear expires the session cookie using the same attributes Set used.
func (s *SessionCarrier) Clear(c *fiber.Ctx) {
	cookie := s.cookie("")
	cookie.Expires = time.Unix(0, 0)
	c.Cookie(cookie)
}

// Extract returns the presented token, or "" when none was sent.
func (s *SessionCarrier) Extract(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Cookies(SessionCookieName)); token != "" {
		return token
	}
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *SessionCarrier) cookie(value string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
