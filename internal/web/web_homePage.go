package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const welcomeText = "Hi...and welcome to my web site"

func (s *WebServer) homePage(c *gin.Context) {
	data := s.getBaseTemplateData("Home Page")
	data.WelcomeText = welcomeText
	s.renderTemplate(c, http.StatusOK, "home.html", data)
}
