package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *WebServer) aboutPage(c *gin.Context) {
	s.renderTemplate(c, http.StatusOK, "about.html", s.getBaseTemplateData("About Page"))
}
