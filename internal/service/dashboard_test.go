package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rockwatchstack/rockwatch/internal/cache"
	"github.com/rockwatchstack/rockwatch/internal/models"
	"github.com/rockwatchstack/rockwatch/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New()
	now := time.Now().UTC()

	st.PutSite(models.Site{ID: "s-1", Name: "North Pit", Status: models.SiteActive})
	st.PutSite(models.Site{ID: "s-2", Name: "West Wall", Status: models.SiteActive})

	st.PutSensor(models.Sensor{ID: "sn-1", SiteID: "s-1", Status: models.SensorOnline})
	st.PutSensor(models.Sensor{ID: "sn-2", SiteID: "s-1", Status: models.SensorOffline})
	st.PutSensor(models.Sensor{ID: "sn-3", SiteID: "s-2", Status: models.SensorOnline})

	st.PutPrediction(models.Prediction{
		ID: "p-1", SiteID: "s-1", Timestamp: now.Add(-30 * time.Minute),
		RiskLevel: models.RiskHigh, Probability: 0.72,
	})
	st.PutPrediction(models.Prediction{
		ID: "p-2", SiteID: "s-2", Timestamp: now.Add(-3 * time.Hour),
		RiskLevel: models.RiskLow, Probability: 0.1,
	})

	st.PutAlert(models.Alert{ID: "a-1", SiteID: "s-1", Timestamp: now.Add(-10 * time.Minute), Severity: models.SeverityHigh, Status: models.AlertActive})
	st.PutAlert(models.Alert{ID: "a-2", SiteID: "s-2", Timestamp: now.Add(-2 * 24 * time.Hour), Severity: models.SeverityLow, Status: models.AlertResolved})
	return st
}

func TestStatsCountsEntities(t *testing.T) {
	d := NewDashboard(nil, seededStore(t), nil, 0, 0)

	stats, err := d.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalSites != 2 {
		t.Fatalf("expected 2 sites, got %d", stats.TotalSites)
	}
	if stats.TotalSensors != 3 || stats.SensorsOnline != 2 {
		t.Fatalf("unexpected sensor counts: total=%d online=%d", stats.TotalSensors, stats.SensorsOnline)
	}
	if stats.ActiveAlerts != 1 {
		t.Fatalf("expected 1 active alert, got %d", stats.ActiveAlerts)
	}
	if stats.HighRiskSites != 1 {
		t.Fatalf("expected 1 high risk site, got %d", stats.HighRiskSites)
	}
}

func TestStatsServedFromCache(t *testing.T) {
	st := seededStore(t)
	provider := cache.NewMemoryProvider(time.Minute)
	d := NewDashboard(nil, st, provider, time.Minute, time.Minute)

	first, err := d.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}

	// A store change is invisible until the cache entry is dropped.
	st.PutSite(models.Site{ID: "s-3", Name: "East Slope"})
	cached, err := d.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if cached.TotalSites != first.TotalSites {
		t.Fatalf("expected cached stats, got %d sites", cached.TotalSites)
	}

	d.Refresh(context.Background())
	fresh, err := d.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if fresh.TotalSites != 3 {
		t.Fatalf("expected refreshed stats with 3 sites, got %d", fresh.TotalSites)
	}
}

func TestSiteSummaries(t *testing.T) {
	d := NewDashboard(nil, seededStore(t), nil, 0, 0)

	summaries, err := d.SiteSummaries(context.Background(), 0)
	if err != nil {
		t.Fatalf("SiteSummaries returned error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	north := summaries[0]
	if north.SiteID != "s-1" {
		t.Fatalf("expected s-1 first, got %s", north.SiteID)
	}
	if north.CurrentRiskLevel != models.RiskHigh {
		t.Fatalf("expected high risk, got %s", north.CurrentRiskLevel)
	}
	if north.TotalSensors != 2 || north.SensorsOnline != 1 {
		t.Fatalf("unexpected sensor counts: total=%d online=%d", north.TotalSensors, north.SensorsOnline)
	}
	if north.RecentAlerts != 1 {
		t.Fatalf("expected 1 recent alert, got %d", north.RecentAlerts)
	}

	capped, err := d.SiteSummaries(context.Background(), 1)
	if err != nil {
		t.Fatalf("SiteSummaries returned error: %v", err)
	}
	if len(capped) != 1 {
		t.Fatalf("expected limit applied, got %d", len(capped))
	}
}

func TestSummaryDefaultsToLowRisk(t *testing.T) {
	st := store.New()
	st.PutSite(models.Site{ID: "s-1", Name: "Quiet Site"})
	d := NewDashboard(nil, st, nil, 0, 0)

	summaries, err := d.SiteSummaries(context.Background(), 0)
	if err != nil {
		t.Fatalf("SiteSummaries returned error: %v", err)
	}
	if summaries[0].CurrentRiskLevel != models.RiskLow {
		t.Fatalf("site without predictions should be low risk, got %s", summaries[0].CurrentRiskLevel)
	}
}

func TestOverviewSettlesAllPanels(t *testing.T) {
	d := NewDashboard(nil, seededStore(t), nil, 0, 0)

	panels := d.Overview(context.Background())
	if len(panels) != 3 {
		t.Fatalf("expected 3 panels, got %d", len(panels))
	}
	names := map[string]bool{}
	for _, p := range panels {
		names[p.Name] = true
		if p.Error != "" {
			t.Fatalf("panel %s failed: %s", p.Name, p.Error)
		}
		if p.Data == nil {
			t.Fatalf("panel %s has no data", p.Name)
		}
	}
	for _, want := range []string{"stats", "site_summaries", "recent_alerts"} {
		if !names[want] {
			t.Fatalf("missing panel %s", want)
		}
	}
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("cache down")
}
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}
func (failingCache) Del(context.Context, string) error { return errors.New("cache down") }
func (failingCache) Close() error                      { return nil }

func TestStatsSurvivesCacheFailure(t *testing.T) {
	d := NewDashboard(nil, seededStore(t), failingCache{}, time.Minute, time.Minute)

	stats, err := d.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats should not propagate cache errors: %v", err)
	}
	if stats.TotalSites != 2 {
		t.Fatalf("expected computed stats, got %d sites", stats.TotalSites)
	}
}
