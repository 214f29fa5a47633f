package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/guardpost/internal/cache"
	"github.com/lalith-99/guardpost/internal/middleware"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/observ"
	"github.com/lalith-99/guardpost/internal/present"
	"github.com/lalith-99/guardpost/internal/realtime"
	"github.com/lalith-99/guardpost/internal/service"
	"go.uber.org/zap"
)

// Deps is everything the router needs. Limiter may be nil, which turns
// off message rate limiting.
type Deps struct {
	DB        Pinger
	Users     *service.UserService
	Jobs      *service.JobService
	Messages  *service.MessageService
	Reviews   *service.ReviewService
	Presenter *present.Presenter
	Realtime  *realtime.Server
	Limiter   middleware.Counter
	Logger    *zap.Logger

	JWTSecret        string
	TokenTTL         time.Duration
	CORSOrigin       string
	MessageRateLimit int
}

// SetupRouter registers every route on a fresh gin engine.
func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		observ.RequestLogger(d.Logger),
		observ.Recovery(d.Logger),
		middleware.CORS(d.CORSOrigin),
	)

	health := NewHealthHandler(d.DB, d.Logger)
	authH := NewAuthHandler(d.Users, d.JWTSecret, d.TokenTTL, d.Logger)
	users := NewUserHandler(d.Users, d.Logger)
	jobs := NewJobHandler(d.Jobs, d.Presenter, d.Logger)
	messages := NewMessageHandler(d.Messages, d.Presenter, d.Logger)
	reviews := NewReviewHandler(d.Reviews, d.Presenter, d.Logger)
	ws := NewWSHandler(d.Realtime, d.JWTSecret, d.CORSOrigin, d.Logger)

	v1 := r.Group("/v1")

	// Public.
	v1.GET("/health", health.Check)
	v1.POST("/auth/register", authH.Register)
	v1.POST("/auth/login", authH.Login)
	v1.GET("/jobs", jobs.List)
	v1.GET("/jobs/:id", jobs.Get)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(d.JWTSecret))

	authed.GET("/users/me", users.GetMe)
	authed.PUT("/users/me", users.UpdateMe)

	// Ownership is checked by the service; the role gate only keeps guards
	// away from client routes and the other way around.
	clientJobs := authed.Group("/jobs", middleware.RequireRole(models.RoleClient))
	clientJobs.POST("", jobs.Create)
	clientJobs.PUT("/:id", jobs.Update)
	clientJobs.DELETE("/:id", jobs.Delete)
	clientJobs.GET("/:id/applications", jobs.Applications)
	clientJobs.POST("/:id/hire", jobs.Hire)
	clientJobs.POST("/:id/hire/:guardId", jobs.Hire)
	clientJobs.POST("/:id/complete", jobs.Complete)
	clientJobs.POST("/:id/rate", jobs.Rate)

	guardJobs := authed.Group("/jobs", middleware.RequireRole(models.RoleGuard))
	guardJobs.POST("/:id/apply", jobs.Apply)

	msgs := authed.Group("/messages")
	send := []gin.HandlerFunc{messages.Send}
	if d.Limiter != nil {
		send = append([]gin.HandlerFunc{
			middleware.RateLimit(d.Limiter, "messages", d.MessageRateLimit, cache.RateLimitWindow, d.Logger),
		}, send...)
	}
	msgs.POST("", send...)
	msgs.GET("/conversations", messages.Conversations)
	msgs.GET("/conversation/:userId", messages.Conversation)
	msgs.PUT("/read/:userId", messages.MarkRead)

	rev := authed.Group("/reviews")
	rev.POST("", reviews.Create)
	rev.PUT("/:reviewId", reviews.Update)
	rev.DELETE("/:reviewId", reviews.Delete)
	rev.GET("/user/:userId", reviews.ForUser)
	rev.GET("/job/:jobId", reviews.ForJob)

	r.GET("/ws", ws.Handle)

	return r
}
