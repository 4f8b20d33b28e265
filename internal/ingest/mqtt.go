// Package ingest subscribes to the field gateway's MQTT feed and applies
// sensor readings to the store, keeping sensor liveness current.
package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rockwatchstack/rockwatch/internal/metrics"
	"github.com/rockwatchstack/rockwatch/internal/models"
)

// Config holds broker connection parameters.
type Config struct {
	Broker       string
	ClientID     string
	Username     string
	Password     string
	ReadingTopic string
}

// ReadingSink applies one sensor reading; satisfied by store.Store.
type ReadingSink interface {
	RecordReading(models.Reading) error
}

// Subscriber owns the MQTT connection and the reading subscription.
type Subscriber struct {
	client mqtt.Client
	cfg    Config
	sink   ReadingSink
	logger *slog.Logger
}

// NewSubscriber connects to the broker and fails fast on bad credentials or
// connectivity.
func NewSubscriber(cfg Config, sink ReadingSink, logger *slog.Logger) (*Subscriber, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "rockwatch-ingest"
	}
	if cfg.ReadingTopic == "" {
		cfg.ReadingTopic = "rockwatch/+/reading"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", slog.Any("error", err))
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", slog.String("broker", cfg.Broker))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}

	return &Subscriber{client: client, cfg: cfg, sink: sink, logger: logger}, nil
}

// Subscribe attaches the reading handler to the configured topic.
func (s *Subscriber) Subscribe() error {
	token := s.client.Subscribe(s.cfg.ReadingTopic, 1, s.handleReading)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.cfg.ReadingTopic, token.Error())
	}
	s.logger.Info("subscribed to sensor readings", slog.String("topic", s.cfg.ReadingTopic))
	return nil
}

// Close disconnects from the broker, allowing in-flight work to finish.
func (s *Subscriber) Close() {
	s.client.Disconnect(250)
}

func (s *Subscriber) handleReading(_ mqtt.Client, msg mqtt.Message) {
	reading, err := ParseReading(msg.Payload())
	if err != nil {
		s.logger.Warn("dropping malformed reading", slog.String("topic", msg.Topic()), slog.Any("error", err))
		metrics.ObserveIngest("malformed")
		return
	}
	if err := s.sink.RecordReading(reading); err != nil {
		s.logger.Warn("reading for unknown sensor", slog.String("sensor", reading.SensorID), slog.Any("error", err))
		metrics.ObserveIngest("unknown_sensor")
		return
	}
	metrics.ObserveIngest("ok")
}

// ParseReading decodes and validates one reading payload. Readings without a
// sensor ID are rejected; a missing timestamp is stamped with the receive
// time so liveness still advances.
func ParseReading(payload []byte) (models.Reading, error) {
	var r models.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return models.Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	if r.SensorID == "" {
		return models.Reading{}, fmt.Errorf("reading missing sensor_id")
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return r, nil
}
