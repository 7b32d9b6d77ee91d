package routers

import (
	"net/http"

	"menu-qa/internal/ctx"
	"menu-qa/internal/handlers/chat"
	"menu-qa/internal/middleware"

	"github.com/labstack/echo/v4"
)

// RegisterAdminRoutes mounts the operator endpoints. They are only mounted
// when an admin key is configured.
func RegisterAdminRoutes(e *echo.Group, ch *chat.ChatHandler, adminKey string) {
	requireAdmin := e.Group("/admin", middleware.RequireBearer(adminKey))

	requireAdmin.POST("/governance/reset", func(cc echo.Context) error {
		c := cc.(*ctx.Context)
		ch.State().Reset()
		c.Log.Infow("Governance state reset")
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})
	requireAdmin.POST("/corpus/reindex", func(cc echo.Context) error {
		c := cc.(*ctx.Context)
		ch.ReindexCorpus()
		c.Log.Infow("Corpus reindex requested")
		return c.JSON(http.StatusAccepted, map[string]bool{"ok": true})
	})
}
