package middleware

import (
	"crypto/subtle"

	"menu-qa/internal/ctx"
	"menu-qa/internal/governance"
	"menu-qa/internal/shared"

	"github.com/labstack/echo/v4"
)

// ExtractClient derives the client key from the X-Client-Id header and the
// caller's address. Routes that accept a token in the body may refine it.
func ExtractClient(next echo.HandlerFunc) echo.HandlerFunc {
	return func(cc echo.Context) error {
		c := cc.(*ctx.Context)
		key := governance.ClientKey(c.Request().Header.Get(shared.ClientTokenHeader), c.LogValues.ClientAddress)
		c.LogValues.ClientKey = key
		c.Log = c.Log.With("client_key", key)
		return next(c)
	}
}

// RequireBearer rejects requests whose bearer token is not key. An empty key
// rejects everything.
func RequireBearer(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := shared.ExtractBearer(c)
			if err != nil {
				return c.String(401, "Missing or invalid API key")
			}
			if key == "" || subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				return c.String(401, "Unauthorized API key")
			}
			return next(c)
		}
	}
}
