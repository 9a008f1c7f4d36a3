package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/minifeed/backend/internal/config"
	"github.com/minifeed/backend/internal/handlers"
	"github.com/minifeed/backend/internal/metrics"
	"github.com/minifeed/backend/internal/middleware"
	"github.com/minifeed/backend/internal/posts"
)

// HealthFunc reports storage health, e.g. database.Service.Health.
type HealthFunc func() map[string]string

type Server struct {
	cfg     *config.Config
	handler *handlers.Handler
	health  HealthFunc
	log     *logrus.Logger
}

func New(cfg *config.Config, service *posts.Service, health HealthFunc, log *logrus.Logger) *Server {
	return &Server{
		cfg:     cfg,
		handler: handlers.NewHandler(service),
		health:  health,
		log:     log,
	}
}

// NewServer creates and configures a new server
func NewServer(cfg *config.Config, service *posts.Service, health HealthFunc, log *logrus.Logger) *http.Server {
	s := New(cfg, service, health, log)

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.log))
	r.Use(middleware.Metrics("api"))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  s.cfg.CORSOrigins,
		AllowMethods:  []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
		AllowHeaders:  []string{"Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET(s.cfg.Docs.Prefix, s.docsHandler(r))

	api := r.Group("/posts")
	{
		api.POST("", s.handler.Post.CreatePost)
		api.GET("", s.handler.Post.GetPosts)
		api.GET("/:id", s.handler.Post.GetPost)
		api.PUT("/:id", s.handler.Post.UpdatePost)
		api.DELETE("/:id", s.handler.Post.DeletePost)
		api.POST("/:id/comments", s.handler.Comment.CreateComment)
		api.POST("/:id/like", s.handler.Post.LikePost)
		api.POST("/:id/dislike", s.handler.Post.DislikePost)
	}

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	stats := map[string]string{"status": "up"}
	if s.health != nil {
		stats = s.health()
	}

	status := http.StatusOK
	body := gin.H{"status": "ok", "database": stats}
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

type routeDoc struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// docsHandler describes the API: metadata from config plus the live route table.
func (s *Server) docsHandler(r *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var routes []routeDoc
		for _, route := range r.Routes() {
			routes = append(routes, routeDoc{Method: route.Method, Path: route.Path})
		}
		c.JSON(http.StatusOK, gin.H{
			"title":       s.cfg.Docs.Title,
			"description": s.cfg.Docs.Description,
			"version":     s.cfg.Docs.Version,
			"tag":         s.cfg.Docs.Tag,
			"routes":      routes,
		})
	}
}
