// Package shared
package shared

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
)

func SafeEnv(env string) (string, error) {
	// Lookup env variable, and error if not present
	res, present := os.LookupEnv(env)
	if !present {
		return "", fmt.Errorf("missing environment variable %s", env)
	}
	return res, nil
}

func GetEnv(env, fallback string) string {
	if value, ok := os.LookupEnv(env); ok {
		return value
	}
	return fallback
}

func ExtractBearer(c echo.Context) (string, error) {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return "", ErrUnauthorized
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrUnauthorized
	}
	return parts[1], nil
}

// NormalizeCategory maps unknown or empty categories to CategoryAuto.
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if slices.Contains(Categories, c) {
		return c
	}
	return CategoryAuto
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// TrimHistory keeps the last maxTurns usable turns, each trimmed and cut to
// maxChars runes. Turns with an unknown role or no text are dropped.
func TrimHistory(history []Turn, maxTurns, maxChars int) []Turn {
	out := make([]Turn, 0, len(history))
	for _, t := range history {
		role := strings.ToLower(strings.TrimSpace(t.Role))
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		text := Truncate(strings.TrimSpace(t.Text), maxChars)
		if text == "" {
			continue
		}
		out = append(out, Turn{Role: role, Text: text, Timestamp: t.Timestamp})
	}
	if len(out) > maxTurns {
		out = out[len(out)-maxTurns:]
	}
	return out
}
