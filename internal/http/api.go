package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"userhub/internal/auth"
	"userhub/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	issuer  *auth.Issuer
	gate    *auth.Gate
	origins []string
	logger  logrus.FieldLogger
}

func NewHandler(users service.UserService, issuer *auth.Issuer, gate *auth.Gate, origins []string, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:   users,
		issuer:  issuer,
		gate:    gate,
		origins: origins,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(RequestLogger(h.logger))
	router.Use(corsMiddleware(h.origins))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API running"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	router.POST("/signin", h.signIn)
	router.POST("/signup", h.signUp)

	gated := AuthMiddleware(h.gate, h.logger)
	router.POST("/signout", gated, h.signOut)

	users := router.Group("/api/v1/users", gated)
	{
		users.GET("", h.listUsers)
		users.POST("", h.createUser)
		users.GET("/me", h.me)
		users.GET("/:id", h.getUser)
		users.PUT("/:id", h.updateUser)
		users.DELETE("/:id", h.deleteUser)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
