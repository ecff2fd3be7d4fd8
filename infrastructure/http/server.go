// Package http serves the ledger API over gin.
package http

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledger/application/ports"
	"ledger/domain/entity"
	"ledger/infrastructure/config"
	"ledger/infrastructure/http/handlers"
	"ledger/infrastructure/http/middleware"
	"ledger/internal/ledger"
	"ledger/internal/report"
)

// Deps are the services the routes call into
type Deps struct {
	DB      ports.Database
	Ledger  *ledger.Manager
	Reports *report.Service
}

// Server owns the gin engine and the underlying http.Server
type Server struct {
	cfg     *config.Config
	engine  *gin.Engine
	server  *http.Server
	db      ports.Database
	logger  ports.Logger
	metrics ports.Metrics
}

func NewServer(cfg *config.Config, deps Deps, obs ports.Observability) (*Server, error) {
	if deps.DB == nil || deps.Ledger == nil || deps.Reports == nil {
		return nil, fmt.Errorf("database, ledger and report service are required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	logger, metrics, err := obs.ComponentsScoped("http")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		engine:  gin.New(),
		db:      deps.DB,
		logger:  logger,
		metrics: metrics,
	}
	s.routes(deps)
	s.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      s.engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	return s, nil
}

func (s *Server) routes(deps Deps) {
	r := s.engine
	r.Use(middleware.Recovery(s.logger, s.metrics), middleware.Logging(s.logger, s.metrics))
	if c, ok := s.corsMiddleware(); ok {
		r.Use(c)
	}
	r.Use(middleware.LimitBody(s.cfg.HTTP.MaxRequestBytes), middleware.Timeout(s.cfg.Ledger.OperationTimeout))

	r.GET("/healthz", s.health)
	if s.cfg.Adapters.Metrics == "prometheus" {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if s.cfg.Adapters.Storage == "filesystem" {
		r.Static("/uploads", s.cfg.Storage.BucketOrPath)
	}

	progress := handlers.NewProgressHandler(deps.Ledger, s.cfg.Ledger.MaxMediaBytes, s.logger)
	reports := handlers.NewReportHandler(deps.Reports, s.cfg.Ledger.MaxMediaBytes, s.logger)

	api := r.Group("/api/v1")
	api.POST("/reports", reports.Create)

	authed := api.Group("", middleware.Authenticate(s.cfg.Auth.JWTSecret))
	role := middleware.RequireRoles

	authed.POST("/progress", role(entity.RoleAdmin, entity.RoleHeadOfWorkshop, entity.RoleTechnician), progress.Add)
	authed.GET("/progress", role(entity.RoleAdmin, entity.RoleHeadOfWorkshop, entity.RoleTechnician,
		entity.RoleWorkshop, entity.RoleFaculty, entity.RoleDepartment), progress.List)
	authed.PUT("/progress/:id/status", role(entity.RoleAdmin, entity.RoleHeadOfWorkshop), progress.UpdateStatus)
	authed.DELETE("/progress", role(entity.RoleAdmin, entity.RoleHeadOfWorkshop), progress.Delete)
	authed.DELETE("/progress/all", role(entity.RoleAdmin, entity.RoleHeadOfWorkshop), progress.DeleteAll)

	readers := role(entity.RoleAdmin, entity.RoleSubAdmin, entity.RoleHeadOfWorkshop, entity.RoleWorkshop,
		entity.RoleFaculty, entity.RoleDepartment, entity.RoleTechnician)
	authed.GET("/reports", readers, reports.List)
	authed.GET("/reports/:id", readers, reports.Get)
	authed.PUT("/reports/:id/technician", role(entity.RoleAdmin, entity.RoleHeadOfWorkshop), reports.AssignTechnician)
	authed.PUT("/reports/:id/priority", role(entity.RoleAdmin, entity.RoleSubAdmin, entity.RoleHeadOfWorkshop), reports.SetPriority)
	authed.DELETE("/reports", role(entity.RoleAdmin), reports.Delete)
}

// corsMiddleware is nil when no origins are configured
func (s *Server) corsMiddleware() (gin.HandlerFunc, bool) {
	origins := s.cfg.HTTP.CORSOrigins
	if len(origins) == 0 {
		return nil, false
	}

	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	if slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c), true
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.cfg.Version})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.logStartup()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) logStartup() {
	s.logger.Info("HTTP server starting",
		"addr", s.cfg.HTTP.Addr,
		"environment", s.cfg.Environment,
		"storage", s.cfg.Adapters.Storage,
		"database", s.cfg.Adapters.Database,
		"metrics", s.cfg.Adapters.Metrics,
		"cors_origins", s.cfg.HTTP.CORSOrigins)
}
