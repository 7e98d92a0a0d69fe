package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepline/testprep-backend/internal/config"
	"github.com/prepline/testprep-backend/internal/handler"
	"github.com/prepline/testprep-backend/internal/middleware"
	"github.com/prepline/testprep-backend/internal/response"
	"github.com/prepline/testprep-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Portal  *handler.PortalHandler
	Test    *handler.TestHandler
	Subject *handler.SubjectHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID middleware runs globally so every response carries metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
	}

	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/tests", handlers.Portal.ListTests)
		studentAPI.GET("/tests/:test_id", handlers.Portal.GetTest)
		studentAPI.POST("/tests/:test_id/start", handlers.Portal.StartSession)
		studentAPI.GET("/tests/:test_id/state", handlers.Portal.GetState)
		studentAPI.GET("/tests/:test_id/result", handlers.Portal.GetResult)
		studentAPI.GET("/tests/:test_id/solutions", handlers.Portal.GetSolutions)
	}

	// WebSocket auth rides on a query token since browsers cannot set
	// headers on WS upgrade requests.
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/tests/:test_id/stream", handlers.WS.SessionStream)
	}

	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/tests", handlers.Test.List)
		adminAPI.POST("/tests", handlers.Test.Create)
		adminAPI.GET("/tests/:test_id", handlers.Test.Get)
		adminAPI.PUT("/tests/:test_id", handlers.Test.Update)
		adminAPI.DELETE("/tests/:test_id", handlers.Test.Delete)
		adminAPI.POST("/tests/:test_id/publish", handlers.Test.Publish)
		adminAPI.POST("/tests/:test_id/archive", handlers.Test.Archive)
		adminAPI.GET("/tests/:test_id/questions", handlers.Test.ListQuestions)
		adminAPI.POST("/tests/:test_id/questions", handlers.Test.AddQuestion)
		adminAPI.PUT("/tests/:test_id/questions", handlers.Test.ReplaceQuestions)
		adminAPI.DELETE("/tests/:test_id/questions/:question_id", handlers.Test.DeleteQuestion)
		adminAPI.GET("/tests/:test_id/results", handlers.Test.Results)

		subjectsGroup := adminAPI.Group("/subjects")
		{
			subjectsGroup.GET("", handlers.Subject.List)
			subjectsGroup.POST("", handlers.Subject.Create)
			subjectsGroup.PUT("/:subject_id", handlers.Subject.Update)
			subjectsGroup.DELETE("/:subject_id", handlers.Subject.Delete)
		}
	}

	return router
}
