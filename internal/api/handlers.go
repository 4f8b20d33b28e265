package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rockwatchstack/rockwatch/internal/auth"
	"github.com/rockwatchstack/rockwatch/internal/derive"
	"github.com/rockwatchstack/rockwatch/internal/metrics"
	"github.com/rockwatchstack/rockwatch/internal/models"
	"github.com/rockwatchstack/rockwatch/internal/pipeline"
	"github.com/rockwatchstack/rockwatch/internal/service"
	"github.com/rockwatchstack/rockwatch/internal/store"
)

type handlers struct {
	logger    *slog.Logger
	store     *store.Store
	dashboard *service.Dashboard
	issuer    *auth.Issuer
	jobs      *pipeline.JobManager
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=64"`
	FullName string `json:"full_name"`
	Password string `json:"password" validate:"required,min=8"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        models.User `json:"user"`
}

type createSiteRequest struct {
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	Location     models.Location `json:"location"`
	AreaHectares float64         `json:"area_hectares" validate:"gte=0"`
}

type runPredictionRequest struct {
	SiteID string `json:"site_id" validate:"required"`
}

func (h *handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"time":       time.Now().UTC(),
		"started_at": h.store.StartedAt(),
	})
}

// Auth

func (h *handlers) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.store.UserByEmail(req.Email)
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		metrics.ObserveAuthFailure()
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect email or password")
	}
	if !user.Active {
		return echo.NewHTTPError(http.StatusBadRequest, "inactive user")
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}
	h.store.TouchLastLogin(user.ID)
	h.logger.Info("user logged in", slog.String("user", user.ID))

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

func (h *handlers) register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if _, err := h.store.UserByEmail(req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	}

	user := models.User{
		ID:           store.NewID(),
		Email:        req.Email,
		Username:     req.Username,
		FullName:     req.FullName,
		Role:         "viewer",
		Active:       true,
		PasswordHash: auth.HashPassword(req.Password),
		CreatedAt:    time.Now().UTC(),
	}
	h.store.PutUser(user)
	return c.JSON(http.StatusCreated, user)
}

func (h *handlers) me(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	return c.JSON(http.StatusOK, user)
}

// logout exists for client symmetry; tokens are stateless, so the server
// only acknowledges and the client drops its session.
func (h *handlers) logout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Dashboard

func (h *handlers) dashboardStats(c echo.Context) error {
	stats, err := h.dashboard.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get dashboard statistics")
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *handlers) dashboardOverview(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"panels": h.dashboard.Overview(c.Request().Context()),
	})
}

func (h *handlers) predictionSummary(c echo.Context) error {
	limit := intQuery(c, "limit", 10)
	summaries, err := h.dashboard.SiteSummaries(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get prediction summary")
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *handlers) recentAlerts(c echo.Context) error {
	limit := intQuery(c, "limit", 20)
	alerts, err := h.dashboard.RecentAlerts(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get recent alerts")
	}
	return c.JSON(http.StatusOK, alerts)
}

// Alerts

func (h *handlers) listAlerts(c echo.Context) error {
	window := derive.ParseWindow(c.QueryParam("window"), derive.WindowWeek)
	severity := c.QueryParam("severity")
	if severity == "" {
		severity = derive.CategoryAll
	}

	alerts := derive.Filter(h.store.Alerts(), time.Now().UTC(), window, severity)
	return c.JSON(http.StatusOK, alerts)
}

func (h *handlers) acknowledgeAlert(c echo.Context) error {
	user, _ := currentUser(c)
	alert, err := h.store.AcknowledgeAlert(c.Param("id"), user.ID)
	if err != nil {
		return notFoundOr500(err, "alert")
	}
	return c.JSON(http.StatusOK, alert)
}

// Sites

func (h *handlers) listSites(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Sites())
}

func (h *handlers) getSite(c echo.Context) error {
	site, err := h.store.Site(c.Param("id"))
	if err != nil {
		return notFoundOr500(err, "site")
	}
	return c.JSON(http.StatusOK, site)
}

func (h *handlers) createSite(c echo.Context) error {
	var req createSiteRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	now := time.Now().UTC()
	site := models.Site{
		ID:           store.NewID(),
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		Status:       models.SiteActive,
		AreaHectares: req.AreaHectares,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	h.store.PutSite(site)
	return c.JSON(http.StatusCreated, site)
}

// Sensors

func (h *handlers) listSensors(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = derive.CategoryAll
	}
	sensors := derive.FilterCategory(h.store.Sensors(c.QueryParam("site_id")), status)
	return c.JSON(http.StatusOK, sensors)
}

func (h *handlers) getSensor(c echo.Context) error {
	sensor, err := h.store.Sensor(c.Param("id"))
	if err != nil {
		return notFoundOr500(err, "sensor")
	}
	return c.JSON(http.StatusOK, sensor)
}

func (h *handlers) toggleSensor(c echo.Context) error {
	sensor, err := h.store.ToggleSensor(c.Param("id"))
	if err != nil {
		return notFoundOr500(err, "sensor")
	}
	return c.JSON(http.StatusOK, sensor)
}

// Predictions

func (h *handlers) listPredictions(c echo.Context) error {
	window := derive.ParseWindow(c.QueryParam("window"), derive.WindowMonth)
	risk := c.QueryParam("risk_level")
	if risk == "" {
		risk = derive.CategoryAll
	}

	predictions := derive.Filter(h.store.Predictions(c.QueryParam("site_id")), time.Now().UTC(), window, risk)
	return c.JSON(http.StatusOK, predictions)
}

// runPrediction executes the staged analysis synchronously; closing the
// request cancels the run between progress increments.
func (h *handlers) runPrediction(c echo.Context) error {
	var req runPredictionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.store.Site(req.SiteID); err != nil {
		return notFoundOr500(err, "site")
	}

	runner := pipeline.NewRunner(h.logger, nil)
	started := time.Now()
	prediction, err := runner.Run(c.Request().Context(), req.SiteID)
	if err != nil {
		metrics.ObservePipelineRun("prediction", metrics.OutcomeCancelled, time.Since(started))
		return c.JSON(http.StatusOK, map[string]interface{}{
			"stages": runner.Stages(),
			"error":  "analysis cancelled",
		})
	}
	metrics.ObservePipelineRun("prediction", metrics.OutcomeSuccess, time.Since(started))

	prediction.ID = store.NewID()
	h.store.PutPrediction(prediction)

	if prediction.RiskLevel == models.RiskHigh || prediction.RiskLevel == models.RiskCritical {
		h.store.PutAlert(models.Alert{
			ID:        store.NewID(),
			SiteID:    prediction.SiteID,
			Timestamp: prediction.Timestamp,
			Severity:  models.AlertSeverity(prediction.RiskLevel),
			Status:    models.AlertActive,
			Title:     "Elevated rockfall risk",
			Message:   "On-demand analysis reported elevated rockfall risk",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"stages":     runner.Stages(),
		"prediction": prediction,
	})
}

// Training

func (h *handlers) startTraining(c echo.Context) error {
	var cfg pipeline.TrainingConfig
	if err := bind(c, &cfg); err != nil {
		return err
	}

	job, err := h.jobs.Start(cfg)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusAccepted, job)
}

func (h *handlers) listTrainingJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.jobs.Jobs())
}

func (h *handlers) trainingStatus(c echo.Context) error {
	job, err := h.jobs.Status(c.Param("id"))
	if err != nil {
		return notFoundOr500(err, "training job")
	}
	return c.JSON(http.StatusOK, job)
}

func (h *handlers) cancelTraining(c echo.Context) error {
	job, err := h.jobs.Cancel(c.Param("id"))
	if err != nil {
		return notFoundOr500(err, "training job")
	}
	return c.JSON(http.StatusOK, job)
}

// helpers

func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return c.Validate(req)
}

func intQuery(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func notFoundOr500(err error, kind string) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, pipeline.ErrJobNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, kind+" not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
