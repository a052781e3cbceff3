package v1

import (
	"sync"

	"cv-platform-backend/config"
	"cv-platform-backend/internal/delivery/http/middleware"
	"cv-platform-backend/internal/domain"
	"cv-platform-backend/pkg/security"
	"cv-platform-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	AuthUC   domain.AuthUsecase
	CVUC     domain.CVUsecase
	HealthUC domain.HealthUsecase
	Events   *security.SecurityLogger
	Config   *config.Config
}

var bindingOnce sync.Once

func NewRouter(deps RouterDeps) *gin.Engine {
	bindingOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.Configure(v)
		}
	})

	r := gin.New()

	// Global Middlewares
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(middleware.CORSMiddleware(deps.Config))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.ErrorHandler(deps.Config)) // before Recovery so panics are rendered
	r.Use(middleware.Recovery())
	r.NoRoute(middleware.NoRoute)

	NewHealthHandler(r, deps.HealthUC)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public auth routes, rate limited per IP
	authLimit := middleware.AuthRateLimitConfig(deps.Config)
	authLimit.Events = deps.Events
	authGroup := r.Group("/auth", middleware.RateLimitMiddleware(authLimit))
	NewAuthHandler(authGroup, deps.AuthUC)

	// Protected routes
	authenticate := middleware.AuthMiddleware(deps.AuthUC, deps.Events)

	cvGroup := r.Group("/cv", authenticate, middleware.RequireCandidate(deps.Events))
	NewCVHandler(cvGroup, deps.CVUC)

	searchGroup := r.Group("/search", authenticate, middleware.RequireRecruiter(deps.Events))
	NewSearchHandler(searchGroup)

	usersGroup := r.Group("/users", authenticate)
	NewUserHandler(usersGroup)

	return r
}
