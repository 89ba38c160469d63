package sandbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/mototaxi/internal/models"
)

// LocationProducer streams driver position updates to Kafka so downstream
// consumers (analytics, heatmaps) see them without touching the sandbox.
type LocationProducer struct {
	writer *kafka.Writer
}

func NewLocationProducer(brokers []string, topic string) *LocationProducer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &LocationProducer{writer: w}
}

func (p *LocationProducer) Publish(driverID string, at models.Coord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(map[string]any{
		"driver_id": driverID,
		"lat":       at.Lat,
		"lng":       at.Lng,
		"ts":        time.Now().Unix(),
	})
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(driverID), Value: b})
}

func (p *LocationProducer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
