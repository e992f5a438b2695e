package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaintenanceMiddleware answers every request with the maintenance page and
// stops the chain. It must be registered before StaticMiddleware.
func (s *WebServer) MaintenanceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Retry-After", "3600")
		s.renderTemplate(c, http.StatusServiceUnavailable, "maintenance.html", s.getBaseTemplateData("Down for maintenance"))
		c.Abort()
	}
}
