// Package store holds the in-memory record collections backing the API.
// Records are created by the ingest path, the pipeline, or the demo seed and
// are handed out as copies so callers can never mutate shared state.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rockwatchstack/rockwatch/internal/models"
)

// ErrNotFound signals a lookup for an unknown record.
var ErrNotFound = fmt.Errorf("record not found")

// Store aggregates the per-entity collections behind one mutex each.
type Store struct {
	sites       *collection[models.Site]
	sensors     *collection[models.Sensor]
	predictions *collection[models.Prediction]
	alerts      *collection[models.Alert]
	users       *collection[models.User]
	startedAt   time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		sites:       newCollection[models.Site](),
		sensors:     newCollection[models.Sensor](),
		predictions: newCollection[models.Prediction](),
		alerts:      newCollection[models.Alert](),
		users:       newCollection[models.User](),
		startedAt:   time.Now().UTC(),
	}
}

// StartedAt reports when this store (and therefore the process) came up.
func (s *Store) StartedAt() time.Time { return s.startedAt }

// NewID mints a fresh record identifier.
func NewID() string { return uuid.NewString() }

// collection is an insert-ordered keyed set guarded by a RWMutex.
type collection[T any] struct {
	mu    sync.RWMutex
	byID  map[string]int
	items []entry[T]
}

type entry[T any] struct {
	id   string
	item T
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{byID: make(map[string]int)}
}

func (c *collection[T]) put(id string, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.byID[id]; ok {
		c.items[idx].item = item
		return
	}
	c.byID[id] = len(c.items)
	c.items = append(c.items, entry[T]{id: id, item: item})
}

func (c *collection[T]) get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	idx, ok := c.byID[id]
	if !ok {
		return zero, false
	}
	return c.items[idx].item, true
}

// list returns items in insertion order.
func (c *collection[T]) list() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.items))
	for _, e := range c.items {
		out = append(out, e.item)
	}
	return out
}

func (c *collection[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Sites

// PutSite inserts or replaces a site.
func (s *Store) PutSite(site models.Site) { s.sites.put(site.ID, site) }

// Site returns one site by ID.
func (s *Store) Site(id string) (models.Site, error) {
	site, ok := s.sites.get(id)
	if !ok {
		return models.Site{}, fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	return site, nil
}

// Sites lists all sites in insertion order.
func (s *Store) Sites() []models.Site { return s.sites.list() }

// SiteCount reports the number of registered sites.
func (s *Store) SiteCount() int { return s.sites.len() }

// Sensors

// PutSensor inserts or replaces a sensor.
func (s *Store) PutSensor(sensor models.Sensor) { s.sensors.put(sensor.ID, sensor) }

// Sensor returns one sensor by ID.
func (s *Store) Sensor(id string) (models.Sensor, error) {
	sensor, ok := s.sensors.get(id)
	if !ok {
		return models.Sensor{}, fmt.Errorf("sensor %s: %w", id, ErrNotFound)
	}
	return sensor, nil
}

// Sensors lists all sensors, optionally restricted to a site.
func (s *Store) Sensors(siteID string) []models.Sensor {
	all := s.sensors.list()
	if siteID == "" {
		return all
	}
	out := make([]models.Sensor, 0, len(all))
	for _, sensor := range all {
		if sensor.SiteID == siteID {
			out = append(out, sensor)
		}
	}
	return out
}

// ToggleSensor flips the enabled flag and returns the updated sensor.
func (s *Store) ToggleSensor(id string) (models.Sensor, error) {
	s.sensors.mu.Lock()
	defer s.sensors.mu.Unlock()
	idx, ok := s.sensors.byID[id]
	if !ok {
		return models.Sensor{}, fmt.Errorf("sensor %s: %w", id, ErrNotFound)
	}
	sensor := s.sensors.items[idx].item
	sensor.Enabled = !sensor.Enabled
	if !sensor.Enabled {
		sensor.Status = models.SensorMaintenance
	} else if sensor.Status == models.SensorMaintenance {
		sensor.Status = models.SensorOnline
	}
	s.sensors.items[idx].item = sensor
	return sensor, nil
}

// RecordReading applies an ingest reading to the matching sensor: refreshes
// liveness, battery, and signal, and flips offline sensors back online.
func (s *Store) RecordReading(r models.Reading) error {
	s.sensors.mu.Lock()
	defer s.sensors.mu.Unlock()
	idx, ok := s.sensors.byID[r.SensorID]
	if !ok {
		return fmt.Errorf("sensor %s: %w", r.SensorID, ErrNotFound)
	}
	sensor := s.sensors.items[idx].item
	if !r.Timestamp.IsZero() && r.Timestamp.After(sensor.LastReading) {
		sensor.LastReading = r.Timestamp
	}
	if r.BatteryLevel > 0 {
		sensor.BatteryLevel = r.BatteryLevel
	}
	if r.SignalStrength > 0 {
		sensor.SignalStrength = r.SignalStrength
	}
	if sensor.Enabled && sensor.Status == models.SensorOffline {
		sensor.Status = models.SensorOnline
	}
	s.sensors.items[idx].item = sensor
	return nil
}

// Predictions

// PutPrediction inserts or replaces a prediction.
func (s *Store) PutPrediction(p models.Prediction) { s.predictions.put(p.ID, p) }

// Predictions lists predictions, optionally restricted to a site.
func (s *Store) Predictions(siteID string) []models.Prediction {
	all := s.predictions.list()
	if siteID == "" {
		return all
	}
	out := make([]models.Prediction, 0, len(all))
	for _, p := range all {
		if p.SiteID == siteID {
			out = append(out, p)
		}
	}
	return out
}

// LatestPrediction returns the newest prediction for a site, if any.
func (s *Store) LatestPrediction(siteID string) (models.Prediction, bool) {
	var latest models.Prediction
	found := false
	for _, p := range s.Predictions(siteID) {
		if !found || p.Timestamp.After(latest.Timestamp) {
			latest = p
			found = true
		}
	}
	return latest, found
}

// Alerts

// PutAlert inserts or replaces an alert.
func (s *Store) PutAlert(a models.Alert) { s.alerts.put(a.ID, a) }

// Alerts lists all alerts in insertion order.
func (s *Store) Alerts() []models.Alert { return s.alerts.list() }

// RecentAlerts returns up to limit alerts sorted newest first.
func (s *Store) RecentAlerts(limit int) []models.Alert {
	all := s.alerts.list()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// AcknowledgeAlert marks an active alert acknowledged by the given user.
// Acknowledging an already-acknowledged alert is a no-op.
func (s *Store) AcknowledgeAlert(id, userID string) (models.Alert, error) {
	s.alerts.mu.Lock()
	defer s.alerts.mu.Unlock()
	idx, ok := s.alerts.byID[id]
	if !ok {
		return models.Alert{}, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	alert := s.alerts.items[idx].item
	if alert.Status == models.AlertActive {
		alert.Status = models.AlertAcknowledged
		alert.AcknowledgedBy = userID
		alert.AcknowledgedAt = time.Now().UTC()
		s.alerts.items[idx].item = alert
	}
	return alert, nil
}

// Users

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u models.User) { s.users.put(u.ID, u) }

// User returns one user by ID.
func (s *Store) User(id string) (models.User, error) {
	u, ok := s.users.get(id)
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}

// UserByEmail performs a case-insensitive email lookup.
func (s *Store) UserByEmail(email string) (models.User, error) {
	for _, u := range s.users.list() {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

// TouchLastLogin stamps a successful login.
func (s *Store) TouchLastLogin(id string) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if idx, ok := s.users.byID[id]; ok {
		u := s.users.items[idx].item
		u.LastLogin = time.Now().UTC()
		s.users.items[idx].item = u
	}
}
