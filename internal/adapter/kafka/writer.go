package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/swiss-hydro-service/internal/config"
	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per station after each refresh.
// It implements pipeline.StationPublisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured station topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishSnapshot writes every station of snap in list order in a single
// WriteMessages call.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if snap.Empty() {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(snap.List))
	for _, s := range snap.List {
		msg, err := serializeToMessage(snap.Stations[s.ID], snap.BuiltAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d station updates: %w", len(msgs), err)
	}
	p.logger.Debug("station updates published", "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// StationMessage is the message value: the station as served by the API plus its id.
type StationMessage struct {
	ID string `json:"id"`
	domain.Station
}

// serializeToMessage marshals a station into a Kafka message keyed by station id.
func serializeToMessage(st domain.Station, builtAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(StationMessage{ID: st.ID, Station: st})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize station %s: %w", st.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(st.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "snapshot_built_at", Value: []byte(builtAt.Format(time.RFC3339))},
			{Key: "parameter_count", Value: []byte(strconv.Itoa(len(st.Parameters)))},
		},
	}, nil
}
