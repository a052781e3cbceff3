package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the payload under the "error" key of every failed response.
type ErrorBody struct {
	Message    string   `json:"message"`
	StatusCode int      `json:"statusCode"`
	Details    []string `json:"details,omitempty"`
	Stack      string   `json:"stack,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// MessageResponse is returned by endpoints that only acknowledge the call.
type MessageResponse struct {
	Message string `json:"message"`
}

// Message sends {"message": ...} with the given status.
func Message(c *gin.Context, code int, message string) {
	c.JSON(code, MessageResponse{Message: message})
}

// Error sends the error envelope. stack is omitted when empty.
func Error(c *gin.Context, code int, message string, details []string, stack string) {
	c.JSON(code, ErrorResponse{Error: ErrorBody{
		Message:    message,
		StatusCode: code,
		Details:    details,
		Stack:      stack,
	}})
}
