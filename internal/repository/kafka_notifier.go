package repository

import (
	"context"
	"time"

	"PriceSim/internal/domain/models"
	pkgkafka "PriceSim/pkg/kafka"
)

const EventSimulationPublished = "simulation.published"

// PublishedEvent announces a new latest artifact to downstream consumers.
type PublishedEvent struct {
	Event           string    `json:"event"`
	ID              string    `json:"id"`
	GeneratedAt     time.Time `json:"generated_at"`
	ArchiveKey      string    `json:"archive_key"`
	AssetsSimulated int       `json:"assets_simulated"`
	AssetsAbsent    int       `json:"assets_absent"`
}

type eventPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...pkgkafka.Header) error
}

// KafkaNotifier sends a PublishedEvent per cycle.
type KafkaNotifier struct {
	producer eventPublisher
	topic    string
}

func NewKafkaNotifier(producer *pkgkafka.Producer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) Published(ctx context.Context, archiveKey string, a *models.SimulationArtifact) error {
	ev := PublishedEvent{
		Event:           EventSimulationPublished,
		ID:              a.ID,
		GeneratedAt:     a.GeneratedAt,
		ArchiveKey:      archiveKey,
		AssetsSimulated: a.PresentCount(),
		AssetsAbsent:    a.AbsentCount(),
	}
	return n.producer.Publish(ctx, n.topic, []byte(a.ID), ev,
		pkgkafka.Header{Key: "event", Value: []byte(EventSimulationPublished)})
}
