package v1

import (
	"net/http"

	"cv-platform-backend/internal/delivery/http/response"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct{}

// NewSearchHandler registers the candidate search routes on a group already gated to recruiters.
func NewSearchHandler(group *gin.RouterGroup) {
	handler := &SearchHandler{}

	group.POST("", handler.Search)
	group.GET("/saved", handler.ListSaved)
	group.POST("/saved", handler.SaveSearch)
}

// Search godoc
// @Summary      Search candidates
// @Tags         search
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.MessageResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      403  {object}  response.ErrorResponse
// @Router       /search [post]
func (h *SearchHandler) Search(c *gin.Context) {
	response.Message(c, http.StatusOK, "Search candidates endpoint - to be implemented")
}

// ListSaved godoc
// @Summary      Get saved searches
// @Tags         search
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.MessageResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      403  {object}  response.ErrorResponse
// @Router       /search/saved [get]
func (h *SearchHandler) ListSaved(c *gin.Context) {
	response.Message(c, http.StatusOK, "Get saved searches endpoint - to be implemented")
}

// SaveSearch godoc
// @Summary      Save search
// @Tags         search
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.MessageResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      403  {object}  response.ErrorResponse
// @Router       /search/saved [post]
func (h *SearchHandler) SaveSearch(c *gin.Context) {
	response.Message(c, http.StatusOK, "Save search endpoint - to be implemented")
}
