package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/openlearnhq/campdir/internal/config"
	"github.com/openlearnhq/campdir/internal/http/handlers"
	"github.com/openlearnhq/campdir/internal/http/middlewares"
	"github.com/openlearnhq/campdir/internal/observability"
)

// Deps carries everything the router wires together. Handlers are
// constructed by the caller so tests can swap in fakes.
type Deps struct {
	Auth      *handlers.AuthHandler
	Bootcamps *handlers.BootcampsHandler
	Courses   *handlers.CoursesHandler
	Reviews   *handlers.ReviewsHandler
	Users     *handlers.UsersHandler
	Health    *handlers.HealthHandler

	AuthMW  *middlewares.AuthMiddleware
	Prom    *observability.Prom
	PromReg *prometheus.Registry
}

func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	// leave headroom above the photo limit for multipart framing
	r.Use(middlewares.MaxBodyBytes(cfg.MaxUploadBytes + 1<<20))
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware("campdir-api"))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health and metrics stay off /api/v1

	r.GET("/healthz", deps.Health.Healthz)
	r.GET("/readyz", deps.Health.Readyz)

	if deps.PromReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.PromReg, promhttp.HandlerOpts{})))
	}

	// uploaded bootcamp photos
	r.Static("/uploads", cfg.UploadDir)

	requireAuth := deps.AuthMW.RequireAuth()
	publishers := deps.AuthMW.RequireRole("publisher", "admin")
	reviewers := deps.AuthMW.RequireRole("user", "admin")
	admins := deps.AuthMW.RequireRole("admin")

	api := r.Group("/api/v1")

	// credential endpoints are the brute-force target, keep them slow
	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), deps.Auth.Register)
		authGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), deps.Auth.Login)
		authGroup.GET("/logout", deps.Auth.Logout)
		authGroup.GET("/me", requireAuth, deps.Auth.Me)
	}

	bootcamps := api.Group("/bootcamps")
	{
		bootcamps.GET("", deps.Bootcamps.List)
		bootcamps.POST("", requireAuth, publishers, deps.Bootcamps.Create)
		bootcamps.GET("/radius/:zipcode/:distance", deps.Bootcamps.GetInRadius)
		bootcamps.GET("/:id", deps.Bootcamps.GetByID)
		bootcamps.PUT("/:id", requireAuth, publishers, deps.Bootcamps.Update)
		bootcamps.DELETE("/:id", requireAuth, publishers, deps.Bootcamps.Delete)
		bootcamps.PUT("/:id/photo", requireAuth, publishers, deps.Bootcamps.UploadPhoto)

		// nested collections
		bootcamps.GET("/:id/courses", deps.Courses.List)
		bootcamps.POST("/:id/courses", requireAuth, publishers, deps.Courses.Create)
		bootcamps.GET("/:id/reviews", deps.Reviews.List)
		bootcamps.POST("/:id/reviews", requireAuth, reviewers, deps.Reviews.Create)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", deps.Courses.List)
		courses.GET("/:id", deps.Courses.GetByID)
		courses.PUT("/:id", requireAuth, publishers, deps.Courses.Update)
		courses.DELETE("/:id", requireAuth, publishers, deps.Courses.Delete)
	}

	reviews := api.Group("/reviews")
	{
		reviews.GET("", deps.Reviews.List)
		reviews.GET("/:id", deps.Reviews.GetByID)
		reviews.PUT("/:id", requireAuth, reviewers, deps.Reviews.Update)
		reviews.DELETE("/:id", requireAuth, reviewers, deps.Reviews.Delete)
	}

	users := api.Group("/users", requireAuth, admins)
	{
		users.GET("", deps.Users.List)
		users.POST("", deps.Users.Create)
		users.GET("/:id", deps.Users.GetByID)
		users.PUT("/:id", deps.Users.Update)
		users.DELETE("/:id", deps.Users.Delete)
	}

	return r
}
