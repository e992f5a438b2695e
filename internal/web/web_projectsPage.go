package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// projectsPage handles "/projects"
func (s *WebServer) projectsPage(c *gin.Context) {
	s.renderTemplate(c, http.StatusOK, "projects.html", s.getBaseTemplateData("Projects Page"))
}
