package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/rockwatchstack/rockwatch/internal/auth"
	"github.com/rockwatchstack/rockwatch/internal/config"
	"github.com/rockwatchstack/rockwatch/internal/pipeline"
	"github.com/rockwatchstack/rockwatch/internal/service"
	"github.com/rockwatchstack/rockwatch/internal/store"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Logger    *slog.Logger
	Store     *store.Store
	Dashboard *service.Dashboard
	Issuer    *auth.Issuer
	Jobs      *pipeline.JobManager
}

// Server wraps the echo instance and lifecycle helpers.
type Server struct {
	cfg  config.ServerConfig
	echo *echo.Echo
}

// requestValidator adapts validator/v10 to echo's binding hook.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// NewServer constructs the REST server and registers all routes.
func NewServer(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Issuer == nil || deps.Dashboard == nil || deps.Jobs == nil {
		return nil, fmt.Errorf("api server missing dependencies")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}
	e.Use(echomw.Recover())
	e.Use(observeRequests())

	h := &handlers{
		logger:    deps.Logger,
		store:     deps.Store,
		dashboard: deps.Dashboard,
		issuer:    deps.Issuer,
		jobs:      deps.Jobs,
	}

	e.GET("/health", h.health)

	authGroup := e.Group("/api/auth")
	authGroup.POST("/login", h.login)
	authGroup.POST("/register", h.register)
	authGroup.GET("/me", h.me, requireAuth(deps.Issuer, deps.Store))
	authGroup.POST("/logout", h.logout, requireAuth(deps.Issuer, deps.Store))

	protected := e.Group("", requireAuth(deps.Issuer, deps.Store))

	dash := protected.Group("/api/dashboard")
	dash.GET("/stats", h.dashboardStats)
	dash.GET("/overview", h.dashboardOverview)
	dash.GET("/predictions/summary", h.predictionSummary)
	dash.GET("/alerts/recent", h.recentAlerts)

	protected.GET("/api/alerts", h.listAlerts)
	protected.POST("/api/alerts/:id/acknowledge", h.acknowledgeAlert)

	protected.GET("/sites", h.listSites)
	protected.POST("/sites", h.createSite)
	protected.GET("/sites/:id", h.getSite)

	protected.GET("/sensors", h.listSensors)
	protected.GET("/sensors/:id", h.getSensor)
	protected.POST("/sensors/:id/toggle", h.toggleSensor)

	protected.GET("/predictions", h.listPredictions)
	protected.POST("/predictions/run", h.runPrediction)

	training := protected.Group("/training")
	training.POST("/start", h.startTraining)
	training.GET("/jobs", h.listTrainingJobs)
	training.GET("/status/:id", h.trainingStatus)
	training.POST("/cancel/:id", h.cancelTraining)

	return &Server{cfg: cfg, echo: e}, nil
}

// Start serves requests until Shutdown is invoked.
func (s *Server) Start() error {
	err := s.echo.Start(s.cfg.Address)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.echo.Shutdown(ctx); err != nil {
		s.echo.Logger.Error(err)
	}
}

// Handler exposes the routing tree (useful for tests).
func (s *Server) Handler() http.Handler { return s.echo }
