package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-pugsite/internal/config"
)

// TemplateData represents common template data
type TemplateData struct {
	PageTitle   string
	WelcomeText string
	AppVersion  string
}

// getBaseTemplateData creates a TemplateData struct with the given page title
func (s *WebServer) getBaseTemplateData(title string) TemplateData {
	return TemplateData{
		PageTitle:  title,
		AppVersion: config.AppVersion,
	}
}

// renderTemplate renders the page template templateName with status code
func (s *WebServer) renderTemplate(c *gin.Context, statusCode int, templateName string, data interface{}) {
	if !s.Views.Has(templateName) {
		s.renderError(c, http.StatusInternalServerError, "Template error", "no template named "+templateName)
		return
	}
	c.HTML(statusCode, templateName, data)
	if len(c.Errors) > 0 {
		log.Printf("[WEB]: Error rendering template %s: %v", templateName, c.Errors.Last())
	}
}

// renderError writes a plain text error response
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	log.Printf("[ERROR]:internal/web: Error %d: %s - %s", statusCode, message, errstring)
	c.String(statusCode, "Error: %s", message)
	c.Abort()
}
