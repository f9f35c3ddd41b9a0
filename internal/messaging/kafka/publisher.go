package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IgorGrieder/atalho/internal/events"
	"github.com/IgorGrieder/atalho/internal/processing/links"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ClickPublisher publishes click events instead of writing the click store
// directly. It satisfies links.ClickWriter, so the recorder's drop-and-log
// semantics apply unchanged: a failed publish is a lost click, never retried.
type ClickPublisher struct {
	writer *kafka.Writer
}

func NewClickPublisher(brokers []string, topic string) *ClickPublisher {
	return &ClickPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *ClickPublisher) Append(ctx context.Context, click *links.Click) error {
	event := events.ClickRecorded{
		EventID:    uuid.New().String(),
		LinkID:     click.LinkID,
		IPAddress:  click.IPAddress,
		UserAgent:  click.UserAgent,
		OccurredAt: click.Timestamp.UTC().Format(time.RFC3339Nano),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := make([]kafka.Header, 0, len(carrier))
	for key, val := range carrier {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(val)})
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(click.LinkID),
		Value:   value,
		Headers: headers,
	})
}

func (p *ClickPublisher) Close() error {
	return p.writer.Close()
}
