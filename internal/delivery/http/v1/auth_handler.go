package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"cv-platform-backend/internal/delivery/http/middleware"
	"cv-platform-backend/internal/domain"
	"cv-platform-backend/pkg/apperror"
	"cv-platform-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type AuthHandler struct {
	authUC domain.AuthUsecase
}

func NewAuthHandler(group *gin.RouterGroup, authUC domain.AuthUsecase) {
	handler := &AuthHandler{authUC: authUC}

	group.POST("/register", handler.Register)
	group.POST("/login", handler.Login)
	group.GET("/me", handler.Me)
}

type RegisterRequest struct {
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=6,max_bytes=72"`
	Role     domain.Role `json:"role" binding:"required,oneof=CANDIDATE RECRUITER"`
}

func (r *RegisterRequest) normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (r *LoginRequest) normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
}

type RegisteredUser struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type RegisterResponse struct {
	Message string         `json:"message"`
	User    RegisteredUser `json:"user"`
	Token   string         `json:"token"`
}

type LoginResponse struct {
	Message string          `json:"message"`
	User    domain.AuthUser `json:"user"`
	Token   string          `json:"token"`
}

type CurrentUser struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Role      domain.Role     `json:"role"`
	CreatedAt time.Time       `json:"createdAt"`
	Profile   *domain.Profile `json:"profile"`
}

type MeResponse struct {
	User CurrentUser `json:"user"`
}

// Register godoc
// @Summary      User Registration
// @Description  Create a CANDIDATE or RECRUITER account and return a 24h bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        register  body      RegisterRequest  true  "Registration Details"
// @Success      201       {object}  RegisterResponse
// @Failure      400       {object}  response.ErrorResponse
// @Failure      409       {object}  response.ErrorResponse
// @Failure      429       {object}  response.ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.authUC.Register(c.Request.Context(), domain.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Message: "User created successfully",
		User: RegisteredUser{
			ID:        result.User.ID,
			Email:     result.User.Email,
			Role:      result.User.Role,
			CreatedAt: result.User.CreatedAt,
		},
		Token: result.Token,
	})
}

// Login godoc
// @Summary      User Login
// @Description  Exchange email and password for a 24h bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        login  body      LoginRequest  true  "Login Credentials"
// @Success      200    {object}  LoginResponse
// @Failure      400    {object}  response.ErrorResponse
// @Failure      401    {object}  response.ErrorResponse
// @Failure      429    {object}  response.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.authUC.Login(c.Request.Context(), domain.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: c.GetString(string(domain.KeyRequestID)),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message: "Login successful",
		User:    result.User.AuthUser(),
		Token:   result.Token,
	})
}

// Me godoc
// @Summary      Current User
// @Description  Return the account referenced by the bearer token, with its profile when one exists.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MeResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		_ = c.Error(apperror.Unauthorized("Access token required"))
		return
	}

	claims, err := h.authUC.VerifyToken(c.Request.Context(), token)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.authUC.GetCurrentUser(c.Request.Context(), claims.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, MeResponse{User: CurrentUser{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		Profile:   user.Profile,
	}})
}

const msgInvalidBody = "body: must be a valid JSON object"

type normalizer interface {
	normalize()
}

// bindJSON decodes the body, normalizes it and only then runs the binding rules,
// so " Jane@Example.com " validates as an address.
func bindJSON(c *gin.Context, req normalizer) error {
	if err := decodeJSON(c, req); err != nil {
		return apperror.Validation([]string{msgInvalidBody})
	}
	req.normalize()
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return apperror.Validation(validation.FormatValidationErrors(err))
	}
	return nil
}

var errTrailingData = errors.New("unexpected data after JSON value")

// decodeJSON reads exactly one JSON value from the body.
func decodeJSON(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}
