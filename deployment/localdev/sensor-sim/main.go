// sensor-sim publishes synthetic sensor readings to the local MQTT broker so
// the ingest path can be exercised without field hardware.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type reading struct {
	SensorID       string             `json:"sensor_id"`
	Timestamp      time.Time          `json:"timestamp"`
	Values         map[string]float64 `json:"values"`
	BatteryLevel   float64            `json:"battery_level"`
	SignalStrength float64            `json:"signal_strength"`
}

var sensorIDs = []string{"sn-0001", "sn-0002", "sn-0003", "sn-0004", "sn-0005", "sn-0006"}

func main() {
	var (
		broker   string
		interval time.Duration
	)
	flag.StringVar(&broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.DurationVar(&interval, "interval", 2*time.Second, "Publish interval per sensor batch")
	flag.Parse()

	logger := log.New(log.Writer(), "sensor-sim ", log.LstdFlags|log.Lmicroseconds)

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("rockwatch-sensor-sim").
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Fatalf("connect %s: %v", broker, token.Error())
	}
	logger.Printf("connected to %s", broker)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			client.Disconnect(250)
			logger.Println("stopped")
			return
		case <-ticker.C:
			for _, id := range sensorIDs {
				payload, err := json.Marshal(reading{
					SensorID:  id,
					Timestamp: time.Now().UTC(),
					Values: map[string]float64{
						"velocity_mm_h":   rng.Float64() * 3,
						"displacement_mm": rng.Float64() * 0.8,
						"pore_pressure":   80 + rng.Float64()*40,
					},
					BatteryLevel:   55 + rng.Float64()*45,
					SignalStrength: 60 + rng.Float64()*40,
				})
				if err != nil {
					logger.Printf("encode reading: %v", err)
					continue
				}
				topic := fmt.Sprintf("rockwatch/%s/reading", id)
				if token := client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
					logger.Printf("publish %s: %v", topic, token.Error())
				}
			}
		}
	}
}
