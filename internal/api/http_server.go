package api

import (
	"net/http"
	"time"

	"yamdb/internal/auth"
	"yamdb/internal/config"
	"yamdb/internal/model"
	"yamdb/internal/permission"
	"yamdb/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const storeTimeout = 5 * time.Second

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg         config.Config
	repo        model.Repository
	authManager *auth.Manager
	logger      logrus.FieldLogger

	// 服务层
	signupService *service.SignupService

	authLimiter *limiterCache
	now         func() time.Time
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, notifier service.Notifier, logger logrus.FieldLogger) (*HTTPHandler, error) {
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry())
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	signupSvc := service.NewSignupService(repo, notifier, authManager, service.SignupConfig{
		CodeLength:     cfg.ConfirmationCodeLength,
		CodeDigitBound: cfg.ConfirmationCodeDigitBound,
		CodeTTL:        cfg.ConfirmationCodeTTL(),
		MailFrom:       cfg.MailFrom,
	})

	useJSONFieldNames()

	return &HTTPHandler{
		cfg:           cfg,
		repo:          repo,
		authManager:   authManager,
		logger:        logger,
		signupService: signupSvc,
		authLimiter:   newLimiterCache(cfg.AuthRateLimit, cfg.AuthRateBurst),
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// RegisterRoutes 注册 /api/v1 下的全部路由。
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(MethodNotAllowed)
	r.NoRoute(RouteNotFound)

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	v1.Use(h.AuthMiddleware())

	authGroup := v1.Group("/auth")
	authGroup.Use(h.RateLimitMiddleware())
	authGroup.POST("/signup", h.Signup)
	authGroup.POST("/token", h.Token)

	me := v1.Group("/users/me")
	me.Use(h.RequireAuthenticated())
	me.GET("", h.GetMe)
	me.PATCH("", h.UpdateMe)

	users := v1.Group("/users")
	users.Use(h.RequirePolicy(permission.AdminOnly))
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
	users.GET("/:username", h.GetUser)
	users.PATCH("/:username", h.UpdateUser)
	users.DELETE("/:username", h.DeleteUser)

	catalog := v1.Group("")
	catalog.Use(h.RequirePolicy(permission.AdminOrReadOnly))
	catalog.GET("/categories", h.ListCategories)
	catalog.POST("/categories", h.CreateCategory)
	catalog.DELETE("/categories/:slug", h.DeleteCategory)
	catalog.GET("/genres", h.ListGenres)
	catalog.POST("/genres", h.CreateGenre)
	catalog.DELETE("/genres/:slug", h.DeleteGenre)
	catalog.GET("/titles", h.ListTitles)
	catalog.POST("/titles", h.CreateTitle)
	catalog.GET("/titles/:title_id", h.GetTitle)
	catalog.PATCH("/titles/:title_id", h.UpdateTitle)
	catalog.DELETE("/titles/:title_id", h.DeleteTitle)

	reviews := v1.Group("/titles/:title_id/reviews")
	reviews.Use(h.RequirePolicy(permission.ReadOnlyOrAuthorOrAdmin))
	reviews.GET("", h.ListReviews)
	reviews.POST("", h.CreateReview)
	reviews.GET("/:review_id", h.GetReview)
	reviews.PATCH("/:review_id", h.UpdateReview)
	reviews.DELETE("/:review_id", h.DeleteReview)
	reviews.GET("/:review_id/comments", h.ListComments)
	reviews.POST("/:review_id/comments", h.CreateComment)
	reviews.GET("/:review_id/comments/:comment_id", h.GetComment)
	reviews.PATCH("/:review_id/comments/:comment_id", h.UpdateComment)
	reviews.DELETE("/:review_id/comments/:comment_id", h.DeleteComment)
}

// Health 健康检查
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
