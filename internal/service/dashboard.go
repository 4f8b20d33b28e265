// Package service mediates between the HTTP layer and the stores,
// assembling the dashboard aggregates.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rockwatchstack/rockwatch/internal/cache"
	"github.com/rockwatchstack/rockwatch/internal/derive"
	"github.com/rockwatchstack/rockwatch/internal/fanout"
	"github.com/rockwatchstack/rockwatch/internal/models"
	"github.com/rockwatchstack/rockwatch/internal/store"
)

const (
	statsCacheKey   = "dashboard:stats"
	summaryCacheKey = "dashboard:summary"
)

// Dashboard aggregates store state into the overview payloads.
type Dashboard struct {
	logger     *slog.Logger
	store      *store.Store
	cache      cache.Provider
	statsTTL   time.Duration
	summaryTTL time.Duration
}

// NewDashboard constructs the aggregation service.
func NewDashboard(logger *slog.Logger, st *store.Store, cacheProvider cache.Provider, statsTTL, summaryTTL time.Duration) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &Dashboard{
		logger:     logger,
		store:      st,
		cache:      cacheProvider,
		statsTTL:   statsTTL,
		summaryTTL: summaryTTL,
	}
}

// Stats computes the headline dashboard numbers, served from cache when warm.
func (d *Dashboard) Stats(ctx context.Context) (models.DashboardStats, error) {
	if data, err := d.cache.Get(ctx, statsCacheKey); err == nil {
		var stats models.DashboardStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return stats, nil
		}
	}

	now := time.Now().UTC()
	stats := models.DashboardStats{
		TotalSites:      d.store.SiteCount(),
		SystemUptimePct: uptimePct(d.store.StartedAt(), now),
	}

	sensors := d.store.Sensors("")
	stats.TotalSensors = len(sensors)
	stats.SensorsOnline = len(derive.FilterCategory(sensors, string(models.SensorOnline)))

	for _, a := range d.store.Alerts() {
		if a.Status == models.AlertActive {
			stats.ActiveAlerts++
		}
	}

	highRisk := make(map[string]struct{})
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, p := range d.store.Predictions("") {
		if p.Timestamp.After(dayStart) || p.Timestamp.Equal(dayStart) {
			stats.PredictionsToday++
		}
		if now.Sub(p.Timestamp) <= time.Hour &&
			(p.RiskLevel == models.RiskHigh || p.RiskLevel == models.RiskCritical) {
			highRisk[p.SiteID] = struct{}{}
		}
	}
	stats.HighRiskSites = len(highRisk)

	d.cachePut(ctx, statsCacheKey, stats, d.statsTTL)
	return stats, nil
}

// SiteSummaries condenses the per-site risk picture.
func (d *Dashboard) SiteSummaries(ctx context.Context, limit int) ([]models.SitePredictionSummary, error) {
	if data, err := d.cache.Get(ctx, summaryCacheKey); err == nil {
		var summaries []models.SitePredictionSummary
		if err := json.Unmarshal(data, &summaries); err == nil {
			return capSummaries(summaries, limit), nil
		}
	}

	now := time.Now().UTC()
	sites := d.store.Sites()
	summaries := make([]models.SitePredictionSummary, 0, len(sites))
	for _, site := range sites {
		summary := models.SitePredictionSummary{
			SiteID:           site.ID,
			SiteName:         site.Name,
			CurrentRiskLevel: models.RiskLow,
		}

		if latest, ok := d.store.LatestPrediction(site.ID); ok {
			summary.CurrentRiskLevel = latest.RiskLevel
			summary.Probability = latest.Probability
			summary.LastPrediction = latest.Timestamp
		}

		sensors := d.store.Sensors(site.ID)
		summary.TotalSensors = len(sensors)
		summary.SensorsOnline = len(derive.FilterCategory(sensors, string(models.SensorOnline)))

		for _, a := range derive.Filter(d.store.Alerts(), now, derive.WindowDay, derive.CategoryAll) {
			if a.SiteID == site.ID && a.Status == models.AlertActive {
				summary.RecentAlerts++
			}
		}
		summaries = append(summaries, summary)
	}

	d.cachePut(ctx, summaryCacheKey, summaries, d.summaryTTL)
	return capSummaries(summaries, limit), nil
}

// RecentAlerts returns the newest alerts for the dashboard strip.
func (d *Dashboard) RecentAlerts(_ context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 20
	}
	return d.store.RecentAlerts(limit), nil
}

// Panel is one independently-settled slice of the overview payload.
type Panel struct {
	Name  string      `json:"name"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Overview assembles the dashboard panels all-settled: a failing panel
// reports its own error without blanking the others.
func (d *Dashboard) Overview(ctx context.Context) []Panel {
	tasks := []fanout.Task[interface{}]{
		{Name: "stats", Run: func(ctx context.Context) (interface{}, error) {
			return d.Stats(ctx)
		}},
		{Name: "site_summaries", Run: func(ctx context.Context) (interface{}, error) {
			return d.SiteSummaries(ctx, 10)
		}},
		{Name: "recent_alerts", Run: func(ctx context.Context) (interface{}, error) {
			return d.RecentAlerts(ctx, 10)
		}},
	}

	results := fanout.AllSettled(ctx, tasks)
	panels := make([]Panel, 0, len(results))
	for _, res := range results {
		panel := Panel{Name: res.Name}
		if res.Err != nil {
			panel.Error = res.Err.Error()
			d.logger.Warn("dashboard panel failed", slog.String("panel", res.Name), slog.Any("error", res.Err))
		} else {
			panel.Data = res.Value
		}
		panels = append(panels, panel)
	}
	return panels
}

// Refresh recomputes the cached aggregates; the background poller calls this
// so interactive requests stay warm.
func (d *Dashboard) Refresh(ctx context.Context) {
	_ = d.cache.Del(ctx, statsCacheKey)
	_ = d.cache.Del(ctx, summaryCacheKey)
	if _, err := d.Stats(ctx); err != nil {
		d.logger.Warn("stats refresh failed", slog.Any("error", err))
	}
	if _, err := d.SiteSummaries(ctx, 0); err != nil {
		d.logger.Warn("summary refresh failed", slog.Any("error", err))
	}
}

func (d *Dashboard) cachePut(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, data, ttl); err != nil {
		d.logger.Debug("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

func capSummaries(summaries []models.SitePredictionSummary, limit int) []models.SitePredictionSummary {
	if limit > 0 && len(summaries) > limit {
		return summaries[:limit]
	}
	return summaries
}

func uptimePct(startedAt, now time.Time) float64 {
	// Placeholder derived from process age; a real figure would come from
	// system logs.
	up := now.Sub(startedAt)
	if up <= 0 {
		return 100
	}
	pct := 99.5 + 0.5*(1-1/(1+up.Hours()))
	if pct > 100 {
		pct = 100
	}
	return float64(int(pct*10+0.5)) / 10
}
