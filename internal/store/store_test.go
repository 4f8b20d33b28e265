package store

import (
	"errors"
	"testing"
	"time"

	"github.com/rockwatchstack/rockwatch/internal/models"
)

func TestPutAndGetSite(t *testing.T) {
	s := New()
	s.PutSite(models.Site{ID: "s-1", Name: "North Pit"})

	site, err := s.Site("s-1")
	if err != nil {
		t.Fatalf("Site returned error: %v", err)
	}
	if site.Name != "North Pit" {
		t.Fatalf("unexpected site name %q", site.Name)
	}

	if _, err := s.Site("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSitesPreserveInsertionOrder(t *testing.T) {
	s := New()
	for _, id := range []string{"c", "a", "b"} {
		s.PutSite(models.Site{ID: id})
	}
	sites := s.Sites()
	if len(sites) != 3 {
		t.Fatalf("expected 3 sites, got %d", len(sites))
	}
	for i, want := range []string{"c", "a", "b"} {
		if sites[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, sites[i].ID)
		}
	}
}

func TestPutReplacesExisting(t *testing.T) {
	s := New()
	s.PutSite(models.Site{ID: "s-1", Name: "old"})
	s.PutSite(models.Site{ID: "s-1", Name: "new"})
	if s.SiteCount() != 1 {
		t.Fatalf("expected 1 site, got %d", s.SiteCount())
	}
	site, _ := s.Site("s-1")
	if site.Name != "new" {
		t.Fatalf("expected replacement, got %q", site.Name)
	}
}

func TestSensorsFilteredBySite(t *testing.T) {
	s := New()
	s.PutSensor(models.Sensor{ID: "sn-1", SiteID: "s-1"})
	s.PutSensor(models.Sensor{ID: "sn-2", SiteID: "s-2"})
	s.PutSensor(models.Sensor{ID: "sn-3", SiteID: "s-1"})

	if got := len(s.Sensors("")); got != 3 {
		t.Fatalf("expected 3 sensors, got %d", got)
	}
	if got := len(s.Sensors("s-1")); got != 2 {
		t.Fatalf("expected 2 sensors for s-1, got %d", got)
	}
}

func TestToggleSensor(t *testing.T) {
	s := New()
	s.PutSensor(models.Sensor{ID: "sn-1", Enabled: true, Status: models.SensorOnline})

	sensor, err := s.ToggleSensor("sn-1")
	if err != nil {
		t.Fatalf("ToggleSensor returned error: %v", err)
	}
	if sensor.Enabled || sensor.Status != models.SensorMaintenance {
		t.Fatalf("expected disabled maintenance sensor, got enabled=%v status=%s", sensor.Enabled, sensor.Status)
	}

	sensor, err = s.ToggleSensor("sn-1")
	if err != nil {
		t.Fatalf("ToggleSensor returned error: %v", err)
	}
	if !sensor.Enabled || sensor.Status != models.SensorOnline {
		t.Fatalf("expected re-enabled online sensor, got enabled=%v status=%s", sensor.Enabled, sensor.Status)
	}
}

func TestRecordReadingUpdatesLiveness(t *testing.T) {
	s := New()
	s.PutSensor(models.Sensor{ID: "sn-1", Enabled: true, Status: models.SensorOffline})

	ts := time.Now().UTC()
	err := s.RecordReading(models.Reading{
		SensorID:       "sn-1",
		Timestamp:      ts,
		BatteryLevel:   73,
		SignalStrength: 88,
	})
	if err != nil {
		t.Fatalf("RecordReading returned error: %v", err)
	}

	sensor, _ := s.Sensor("sn-1")
	if !sensor.LastReading.Equal(ts) {
		t.Fatalf("last reading not updated: %v", sensor.LastReading)
	}
	if sensor.BatteryLevel != 73 || sensor.SignalStrength != 88 {
		t.Fatalf("telemetry not applied: battery=%v signal=%v", sensor.BatteryLevel, sensor.SignalStrength)
	}
	if sensor.Status != models.SensorOnline {
		t.Fatalf("offline sensor not flipped online, status %s", sensor.Status)
	}

	if err := s.RecordReading(models.Reading{SensorID: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown sensor, got %v", err)
	}
}

func TestRecordReadingIgnoresStaleTimestamp(t *testing.T) {
	s := New()
	recent := time.Now().UTC()
	s.PutSensor(models.Sensor{ID: "sn-1", Enabled: true, LastReading: recent})

	if err := s.RecordReading(models.Reading{SensorID: "sn-1", Timestamp: recent.Add(-time.Hour)}); err != nil {
		t.Fatalf("RecordReading returned error: %v", err)
	}
	sensor, _ := s.Sensor("sn-1")
	if !sensor.LastReading.Equal(recent) {
		t.Fatalf("stale reading overwrote liveness: %v", sensor.LastReading)
	}
}

func TestLatestPrediction(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	s.PutPrediction(models.Prediction{ID: "p-1", SiteID: "s-1", Timestamp: now.Add(-2 * time.Hour)})
	s.PutPrediction(models.Prediction{ID: "p-2", SiteID: "s-1", Timestamp: now})
	s.PutPrediction(models.Prediction{ID: "p-3", SiteID: "s-2", Timestamp: now.Add(-time.Minute)})

	latest, ok := s.LatestPrediction("s-1")
	if !ok {
		t.Fatal("expected a prediction for s-1")
	}
	if latest.ID != "p-2" {
		t.Fatalf("expected p-2, got %s", latest.ID)
	}

	if _, ok := s.LatestPrediction("empty"); ok {
		t.Fatal("expected no prediction for unknown site")
	}
}

func TestRecentAlertsSortedNewestFirst(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	s.PutAlert(models.Alert{ID: "a-1", Timestamp: now.Add(-time.Hour)})
	s.PutAlert(models.Alert{ID: "a-2", Timestamp: now})
	s.PutAlert(models.Alert{ID: "a-3", Timestamp: now.Add(-30 * time.Minute)})

	alerts := s.RecentAlerts(2)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].ID != "a-2" || alerts[1].ID != "a-3" {
		t.Fatalf("unexpected order: %s, %s", alerts[0].ID, alerts[1].ID)
	}
}

func TestAcknowledgeAlertIdempotent(t *testing.T) {
	s := New()
	s.PutAlert(models.Alert{ID: "a-1", Status: models.AlertActive})

	first, err := s.AcknowledgeAlert("a-1", "user-1")
	if err != nil {
		t.Fatalf("AcknowledgeAlert returned error: %v", err)
	}
	if first.Status != models.AlertAcknowledged || first.AcknowledgedBy != "user-1" {
		t.Fatalf("unexpected first ack: %+v", first)
	}

	second, err := s.AcknowledgeAlert("a-1", "user-2")
	if err != nil {
		t.Fatalf("AcknowledgeAlert returned error: %v", err)
	}
	if second.AcknowledgedBy != "user-1" {
		t.Fatalf("second ack overwrote first: %s", second.AcknowledgedBy)
	}
}

func TestUserByEmailCaseInsensitive(t *testing.T) {
	s := New()
	s.PutUser(models.User{ID: "u-1", Email: "Admin@Rockfall.com"})

	u, err := s.UserByEmail("admin@rockfall.com")
	if err != nil {
		t.Fatalf("UserByEmail returned error: %v", err)
	}
	if u.ID != "u-1" {
		t.Fatalf("unexpected user %s", u.ID)
	}
}

func TestSeedDemoIsLoadable(t *testing.T) {
	s := New()
	SeedDemo(s)

	if s.SiteCount() == 0 {
		t.Fatal("seed produced no sites")
	}
	if len(s.Sensors("")) == 0 {
		t.Fatal("seed produced no sensors")
	}
	if _, err := s.UserByEmail("admin@rockfall.com"); err != nil {
		t.Fatalf("seed admin missing: %v", err)
	}
	for _, sensor := range s.Sensors("") {
		if _, err := s.Site(sensor.SiteID); err != nil {
			t.Fatalf("sensor %s references unknown site %s", sensor.ID, sensor.SiteID)
		}
	}
}
