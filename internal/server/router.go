package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/handlers"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// Services groups the domain services the HTTP layer exposes.
type Services struct {
	Auth          *services.AuthService
	Users         *services.UserService
	Projects      *services.ProjectService
	Tasks         *services.TaskService
	Worklogs      *services.WorklogService
	Notifications *services.NotificationService
}

// Deps is everything NewRouter wires together. Redis may be nil.
type Deps struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *gorm.DB
	Redis      *redis.Client
	Dispatcher handlers.EffectDispatcher
	Services   Services
}

// NewRouter builds the gin engine with global middleware and every API route.
func NewRouter(d Deps) *gin.Engine {
	limits := d.Config.Limits

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		ginzap.Ginzap(d.Logger, time.RFC3339, true),
		ginzap.RecoveryWithZap(d.Logger, true),
		cors.New(corsConfig(d.Config.App.AllowOrigins)),
		middleware.Metrics(),
		middleware.RateLimit(rate.Limit(limits.RPS), limits.Burst),
		middleware.ConcurrencyLimit(limits.MaxConcurrency),
		middleware.MaxBodyBytes(limits.MaxBodyBytes),
	)

	health := handlers.NewHealthHandler(d.DB, d.Redis)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(d.Services.Auth, d.Dispatcher)
	userHandler := handlers.NewUserHandler(d.Services.Users, d.Dispatcher)
	projectHandler := handlers.NewProjectHandler(d.Services.Projects, d.Dispatcher)
	taskHandler := handlers.NewTaskHandler(d.Services.Tasks, d.Dispatcher)
	worklogHandler := handlers.NewWorklogHandler(d.Services.Worklogs)
	notificationHandler := handlers.NewNotificationHandler(d.Services.Notifications)

	requireAuth := middleware.RequireAuth(d.Services.Auth)
	resetLimit := middleware.RateLimitPerIP(rate.Limit(limits.ResetRPS), limits.ResetBurst)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh-token", authHandler.Refresh)
			auth.POST("/request-password-reset", resetLimit, authHandler.RequestPasswordReset)
			auth.POST("/verify-password-reset", resetLimit, authHandler.VerifyPasswordReset)
			auth.POST("/change-password", resetLimit, authHandler.ChangePassword)
		}

		// Reachable while a temporary password is still active
		pending := api.Group("/auth")
		pending.Use(requireAuth)
		{
			pending.POST("/set-new-password", authHandler.SetNewPassword)
			pending.POST("/logout", authHandler.Logout)
			pending.GET("/sessions", authHandler.Sessions)
		}

		protected := api.Group("")
		protected.Use(requireAuth, middleware.RequirePasswordSet())
		{
			protected.GET("/auth/me", authHandler.Me)
			protected.POST("/auth/revoke-sessions", authHandler.RevokeSessions)

			users := protected.Group("/users")
			users.Use(middleware.RequireRole(models.RoleAdmin))
			{
				users.POST("", userHandler.CreateUser)
				users.GET("", userHandler.ListUsers)
				users.GET("/:id", userHandler.GetUser)
				users.PATCH("/:id", userHandler.UpdateUser)
				users.PATCH("/:id/status", userHandler.SetUserStatus)
				users.DELETE("/:id", userHandler.DeleteUser)
				users.POST("/:id/restore", userHandler.RestoreUser)
			}

			projects := protected.Group("/projects")
			{
				projects.POST("", projectHandler.CreateProject)
				projects.GET("", projectHandler.ListProjects)
				projects.GET("/analytics/stats", projectHandler.Stats)
				projects.GET("/:id", projectHandler.GetProject)
				projects.PATCH("/:id", projectHandler.UpdateProject)
				projects.DELETE("/:id", projectHandler.DeleteProject)
				projects.POST("/:id/restore", projectHandler.RestoreProject)
			}

			tasks := protected.Group("/tasks")
			{
				tasks.POST("", taskHandler.CreateTask)
				tasks.GET("", taskHandler.ListTasks)
				tasks.GET("/:id", taskHandler.GetTask)
				tasks.PATCH("/:id", taskHandler.UpdateTask)
				tasks.DELETE("/:id", taskHandler.DeleteTask)
				tasks.POST("/:id/restore", taskHandler.RestoreTask)

				tasks.POST("/:id/subtasks", taskHandler.CreateSubtask)
				tasks.GET("/:id/subtasks", taskHandler.ListSubtasks)
				tasks.GET("/:id/subtasks/:subtaskId", taskHandler.GetSubtask)
				tasks.PATCH("/:id/subtasks/:subtaskId", taskHandler.UpdateSubtask)
				tasks.DELETE("/:id/subtasks/:subtaskId", taskHandler.DeleteSubtask)
				tasks.POST("/:id/subtasks/:subtaskId/restore", taskHandler.RestoreSubtask)
			}

			worklogs := protected.Group("/worklogs")
			{
				worklogs.POST("", worklogHandler.CreateWorklog)
				worklogs.GET("", worklogHandler.ListWorklogs)
				worklogs.GET("/insights/summary", worklogHandler.Summary)
				worklogs.GET("/:id", worklogHandler.GetWorklog)
				worklogs.PATCH("/:id", worklogHandler.UpdateWorklog)
				worklogs.DELETE("/:id", worklogHandler.DeleteWorklog)
				worklogs.POST("/:id/restore", worklogHandler.RestoreWorklog)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", notificationHandler.ListNotifications)
				notifications.GET("/unread-count", notificationHandler.UnreadCount)
				notifications.PATCH("/read-all", notificationHandler.MarkAllRead)
				notifications.PATCH("/:id/read", notificationHandler.MarkRead)
				notifications.DELETE("/:id", notificationHandler.DeleteNotification)
			}
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.KeyRequestID)
	cfg.ExposeHeaders = []string{middleware.KeyRequestID}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// BuildServer wraps handler in an http.Server with the configured timeouts.
func BuildServer(cfg config.App, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
