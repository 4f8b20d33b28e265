package store

import (
	"time"

	"github.com/rockwatchstack/rockwatch/internal/auth"
	"github.com/rockwatchstack/rockwatch/internal/models"
)

// SeedDemo loads the demo dataset used by local environments: two sites, a
// handful of sensors, a day of predictions, and a few alerts. The accounts
// mirror the long-standing demo credentials (password "secret123").
func SeedDemo(s *Store) {
	now := time.Now().UTC()

	s.PutUser(models.User{
		ID:           "admin-001",
		Email:        "admin@rockfall.com",
		Username:     "admin",
		FullName:     "System Administrator",
		Role:         "admin",
		Active:       true,
		PasswordHash: auth.HashPassword("secret123"),
		CreatedAt:    now,
	})
	s.PutUser(models.User{
		ID:           "op-001",
		Email:        "operator@rockfall.com",
		Username:     "operator",
		FullName:     "Mine Operator",
		Role:         "operator",
		Active:       true,
		PasswordHash: auth.HashPassword("secret123"),
		CreatedAt:    now,
	})

	s.PutSite(models.Site{
		ID:          "site-north-pit",
		Name:        "North Pit",
		Description: "Primary extraction pit, benches 4-9 instrumented",
		Location:    models.Location{Latitude: -23.538, Longitude: 148.157, Elevation: 214},
		Zones: []models.Zone{
			{ID: "np-z1", Name: "Upper bench", RiskLevel: models.RiskMedium},
			{ID: "np-z2", Name: "Haul road cut", RiskLevel: models.RiskHigh},
		},
		Status:       models.SiteActive,
		AreaHectares: 182.5,
		CreatedAt:    now.Add(-90 * 24 * time.Hour),
		UpdatedAt:    now,
	})
	s.PutSite(models.Site{
		ID:          "site-west-wall",
		Name:        "West Wall",
		Description: "Decommissioned wall under long-term observation",
		Location:    models.Location{Latitude: -23.551, Longitude: 148.121, Elevation: 198},
		Zones: []models.Zone{
			{ID: "ww-z1", Name: "Talus slope", RiskLevel: models.RiskLow},
		},
		Status:       models.SiteActive,
		AreaHectares: 64.0,
		CreatedAt:    now.Add(-200 * 24 * time.Hour),
		UpdatedAt:    now,
	})

	sensors := []models.Sensor{
		{ID: "sn-0001", Name: "NP seismic array 1", Type: models.SensorSeismic, SiteID: "site-north-pit", ZoneID: "np-z1", Status: models.SensorOnline, Enabled: true, BatteryLevel: 87, SignalStrength: 92, LastReading: now.Add(-2 * time.Minute)},
		{ID: "sn-0002", Name: "NP tiltmeter bench 6", Type: models.SensorTiltmeter, SiteID: "site-north-pit", ZoneID: "np-z2", Status: models.SensorOnline, Enabled: true, BatteryLevel: 64, SignalStrength: 78, LastReading: now.Add(-5 * time.Minute)},
		{ID: "sn-0003", Name: "NP extensometer HR", Type: models.SensorExtensometer, SiteID: "site-north-pit", ZoneID: "np-z2", Status: models.SensorError, Enabled: true, BatteryLevel: 41, SignalStrength: 55, LastReading: now.Add(-3 * time.Hour)},
		{ID: "sn-0004", Name: "NP weather mast", Type: models.SensorWeather, SiteID: "site-north-pit", Status: models.SensorOnline, Enabled: true, BatteryLevel: 96, SignalStrength: 88, LastReading: now.Add(-1 * time.Minute)},
		{ID: "sn-0005", Name: "WW piezometer 2", Type: models.SensorPiezometer, SiteID: "site-west-wall", ZoneID: "ww-z1", Status: models.SensorOffline, Enabled: true, BatteryLevel: 12, SignalStrength: 31, LastReading: now.Add(-26 * time.Hour)},
		{ID: "sn-0006", Name: "WW camera rim", Type: models.SensorCamera, SiteID: "site-west-wall", Status: models.SensorMaintenance, Enabled: false, BatteryLevel: 73, SignalStrength: 80, LastReading: now.Add(-48 * time.Hour)},
	}
	for i := range sensors {
		sensors[i].CreatedAt = now.Add(-60 * 24 * time.Hour)
		s.PutSensor(sensors[i])
	}

	predictions := []models.Prediction{
		{ID: NewID(), SiteID: "site-north-pit", Timestamp: now.Add(-1 * time.Hour), RiskLevel: models.RiskHigh, Probability: 0.74, Confidence: 0.81, VolumeM3: 420, LeadTimeHrs: 18, ModelVersion: "fusion-2.3"},
		{ID: NewID(), SiteID: "site-north-pit", Timestamp: now.Add(-7 * time.Hour), RiskLevel: models.RiskMedium, Probability: 0.48, Confidence: 0.77, VolumeM3: 150, LeadTimeHrs: 30, ModelVersion: "fusion-2.3"},
		{ID: NewID(), SiteID: "site-north-pit", Timestamp: now.Add(-30 * time.Hour), RiskLevel: models.RiskMedium, Probability: 0.51, Confidence: 0.72, VolumeM3: 180, LeadTimeHrs: 28, ModelVersion: "fusion-2.2"},
		{ID: NewID(), SiteID: "site-west-wall", Timestamp: now.Add(-3 * time.Hour), RiskLevel: models.RiskLow, Probability: 0.12, Confidence: 0.88, VolumeM3: 25, LeadTimeHrs: 72, ModelVersion: "fusion-2.3"},
		{ID: NewID(), SiteID: "site-west-wall", Timestamp: now.Add(-40 * 24 * time.Hour), RiskLevel: models.RiskHigh, Probability: 0.69, Confidence: 0.70, VolumeM3: 380, LeadTimeHrs: 20, ModelVersion: "fusion-2.1"},
	}
	for _, p := range predictions {
		s.PutPrediction(p)
	}

	alerts := []models.Alert{
		{ID: "al-0001", SiteID: "site-north-pit", SensorID: "sn-0002", Timestamp: now.Add(-45 * time.Minute), Severity: models.SeverityHigh, Status: models.AlertActive, Title: "Tilt rate above threshold", Message: "Bench 6 tilt rate exceeded 2.5 mm/h over the last 30 minutes"},
		{ID: "al-0002", SiteID: "site-north-pit", SensorID: "sn-0003", Timestamp: now.Add(-3 * time.Hour), Severity: models.SeverityMedium, Status: models.AlertActive, Title: "Extensometer offline", Message: "No readings from haul road extensometer for 3 hours"},
		{ID: "al-0003", SiteID: "site-west-wall", SensorID: "sn-0005", Timestamp: now.Add(-26 * time.Hour), Severity: models.SeverityLow, Status: models.AlertAcknowledged, Title: "Low battery", Message: "Piezometer 2 battery at 12%", AcknowledgedBy: "op-001", AcknowledgedAt: now.Add(-20 * time.Hour)},
	}
	for _, a := range alerts {
		s.PutAlert(a)
	}
}
