package models

import "time"

// RiskLevel classifies a prediction's rockfall risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// SensorStatus enumerates sensor operational states.
type SensorStatus string

const (
	SensorOnline      SensorStatus = "online"
	SensorOffline     SensorStatus = "offline"
	SensorMaintenance SensorStatus = "maintenance"
	SensorError       SensorStatus = "error"
)

// SensorType enumerates the deployed instrument classes.
type SensorType string

const (
	SensorSeismic      SensorType = "seismic"
	SensorTiltmeter    SensorType = "tiltmeter"
	SensorExtensometer SensorType = "extensometer"
	SensorPiezometer   SensorType = "piezometer"
	SensorWeather      SensorType = "weather_station"
	SensorCamera       SensorType = "camera"
)

// AlertSeverity classifies alert urgency.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus tracks the alert lifecycle.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// SiteStatus tracks whether a mining site is being monitored.
type SiteStatus string

const (
	SiteActive   SiteStatus = "active"
	SiteInactive SiteStatus = "inactive"
	SitePaused   SiteStatus = "paused"
)

// Location pins an entity on the map.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation,omitempty"`
}

// Zone subdivides a site into risk areas.
type Zone struct {
	ID        string    `json:"zone_id"`
	Name      string    `json:"name"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// Site describes a monitored mining site.
type Site struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Location     Location   `json:"location"`
	Zones        []Zone     `json:"zones,omitempty"`
	Status       SiteStatus `json:"status"`
	AreaHectares float64    `json:"area_hectares,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Sensor describes a field device attached to a site.
type Sensor struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Type           SensorType   `json:"type"`
	SiteID         string       `json:"site_id"`
	ZoneID         string       `json:"zone_id,omitempty"`
	Location       Location     `json:"location"`
	Status         SensorStatus `json:"status"`
	Enabled        bool         `json:"enabled"`
	BatteryLevel   float64      `json:"battery_level"`
	SignalStrength float64      `json:"signal_strength"`
	LastReading    time.Time    `json:"last_reading,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Reading is a raw sensor sample delivered over the ingest path.
type Reading struct {
	SensorID       string             `json:"sensor_id"`
	Timestamp      time.Time          `json:"timestamp"`
	Values         map[string]float64 `json:"values"`
	BatteryLevel   float64            `json:"battery_level,omitempty"`
	SignalStrength float64            `json:"signal_strength,omitempty"`
}

// Prediction is a risk assessment produced for a site.
type Prediction struct {
	ID           string    `json:"id"`
	SiteID       string    `json:"site_id"`
	Timestamp    time.Time `json:"timestamp"`
	RiskLevel    RiskLevel `json:"risk_level"`
	Probability  float64   `json:"probability"`
	Confidence   float64   `json:"confidence"`
	VolumeM3     float64   `json:"volume_m3"`
	LeadTimeHrs  float64   `json:"lead_time_hours"`
	ModelVersion string    `json:"model_version,omitempty"`
}

// Alert is a notification raised from a prediction or sensor condition.
type Alert struct {
	ID             string        `json:"id"`
	SiteID         string        `json:"site_id"`
	SensorID       string        `json:"sensor_id,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	Severity       AlertSeverity `json:"severity"`
	Status         AlertStatus   `json:"status"`
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	AcknowledgedBy string        `json:"acknowledged_by,omitempty"`
	AcknowledgedAt time.Time     `json:"acknowledged_at,omitempty"`
}

// User is an account able to authenticate against the service.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name,omitempty"`
	Role         string    `json:"role"`
	Active       bool      `json:"is_active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login,omitempty"`
}

// DashboardStats aggregates headline numbers for the overview page.
type DashboardStats struct {
	TotalSites       int     `json:"total_sites"`
	ActiveAlerts     int     `json:"active_alerts"`
	TotalSensors     int     `json:"total_sensors"`
	SensorsOnline    int     `json:"sensors_online"`
	HighRiskSites    int     `json:"high_risk_sites"`
	PredictionsToday int     `json:"predictions_today"`
	SystemUptimePct  float64 `json:"system_uptime_pct"`
}

// SitePredictionSummary condenses the latest risk picture for one site.
type SitePredictionSummary struct {
	SiteID           string    `json:"site_id"`
	SiteName         string    `json:"site_name"`
	CurrentRiskLevel RiskLevel `json:"current_risk_level"`
	Probability      float64   `json:"latest_probability"`
	LastPrediction   time.Time `json:"last_prediction_time"`
	SensorsOnline    int       `json:"sensors_online"`
	TotalSensors     int       `json:"total_sensors"`
	RecentAlerts     int       `json:"recent_alerts"`
}

// EventTime implements derive.Timed.
func (p Prediction) EventTime() time.Time { return p.Timestamp }

// Category implements derive.Categorized using the risk level.
func (p Prediction) Category() string { return string(p.RiskLevel) }

// EventTime implements derive.Timed.
func (a Alert) EventTime() time.Time { return a.Timestamp }

// Category implements derive.Categorized using the severity.
func (a Alert) Category() string { return string(a.Severity) }

// Category implements derive.Categorized using the operational status.
// Sensors are not time-windowed, so EventTime reports the last reading.
func (s Sensor) Category() string { return string(s.Status) }

// EventTime implements derive.Timed.
func (s Sensor) EventTime() time.Time { return s.LastReading }
