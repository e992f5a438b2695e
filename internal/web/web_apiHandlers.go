package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON body returned by "/bad"
type ErrorResponse struct {
	Error        int    `json:"error"`
	ErrorMessage string `json:"errorMessage"`
}

// badRequest always answers with the same canned error payload (status 200).
// It demonstrates a JSON response, no fault is involved.
func (s *WebServer) badRequest(c *gin.Context) {
	c.JSON(http.StatusOK, ErrorResponse{
		Error:        1,
		ErrorMessage: "Oooops somethign went wrong....",
	})
}
