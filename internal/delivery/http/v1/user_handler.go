package v1

import (
	"net/http"

	"cv-platform-backend/internal/delivery/http/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct{}

func NewUserHandler(group *gin.RouterGroup) {
	handler := &UserHandler{}

	group.GET("/profile", handler.GetProfile)
	group.PUT("/profile", handler.UpdateProfile)
}

// GetProfile godoc
// @Summary      User profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.MessageResponse
// @Failure      401  {object}  response.ErrorResponse
// @Router       /users/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	response.Message(c, http.StatusOK, "User profile endpoint - to be implemented")
}

// UpdateProfile godoc
// @Summary      Update user profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.MessageResponse
// @Failure      401  {object}  response.ErrorResponse
// @Router       /users/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	response.Message(c, http.StatusOK, "Update user profile endpoint - to be implemented")
}
