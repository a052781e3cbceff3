package v1

import (
	"net/http"

	"cv-platform-backend/internal/delivery/http/response"
	"cv-platform-backend/internal/domain"
	"cv-platform-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type CVHandler struct {
	cvUC domain.CVUsecase
}

// NewCVHandler registers the CV routes on a group already gated to candidates.
func NewCVHandler(group *gin.RouterGroup, cvUC domain.CVUsecase) {
	handler := &CVHandler{cvUC: cvUC}

	group.GET("", handler.GetCV)
	group.POST("", handler.SaveCV)
	group.POST("/upload", handler.UploadCV)
	group.POST("/validate", handler.ValidateCV)
}

type CVValidResponse struct {
	Message string     `json:"message"`
	CV      *domain.CV `json:"cv"`
}

// GetCV godoc
// @Summary      Get CV
// @Tags         cv
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.MessageResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      403  {object}  response.ErrorResponse
// @Router       /cv [get]
func (h *CVHandler) GetCV(c *gin.Context) {
	response.Message(c, http.StatusOK, "Get CV endpoint - to be implemented")
}

// SaveCV godoc
// @Summary      Create or update CV
// @Tags         cv
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.MessageResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      403  {object}  response.ErrorResponse
// @Router       /cv [post]
func (h *CVHandler) SaveCV(c *gin.Context) {
	response.Message(c, http.StatusOK, "Create/Update CV endpoint - to be implemented")
}

// UploadCV godoc
// @Summary      Upload CV for parsing
// @Tags         cv
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.MessageResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      403  {object}  response.ErrorResponse
// @Router       /cv/upload [post]
func (h *CVHandler) UploadCV(c *gin.Context) {
	response.Message(c, http.StatusOK, "Upload CV for parsing endpoint - to be implemented")
}

// ValidateCV godoc
// @Summary      Validate CV document
// @Description  Check a CV document against the builder form rules. Nothing is stored.
// @Tags         cv
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        cv   body      domain.CV  true  "CV document"
// @Success      200  {object}  CVValidResponse
// @Failure      400  {object}  response.ErrorResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      403  {object}  response.ErrorResponse
// @Router       /cv/validate [post]
func (h *CVHandler) ValidateCV(c *gin.Context) {
	var cv domain.CV
	if err := decodeJSON(c, &cv); err != nil {
		_ = c.Error(apperror.Validation([]string{msgInvalidBody}))
		return
	}

	normalized, err := h.cvUC.Validate(c.Request.Context(), &cv)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, CVValidResponse{Message: "CV is valid", CV: normalized})
}
