package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/bookcart/internal/metrics"
	"github.com/fjod/bookcart/internal/repository"
	"github.com/fjod/bookcart/pkg/circuitbreaker"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

const (
	DefaultTopic = "invoice-outbox"
	batchSize    = 100
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller moves committed outbox events to Kafka. Delivery is at least
// once: an event is marked processed only after the broker accepted it.
type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	repo      repository.OutboxRepository
	writer    MessageWriter
	breaker   *gobreaker.CircuitBreaker[struct{}]
	metrics   *metrics.Metrics
}

func NewOutboxPoller(repo repository.OutboxRepository, topic string, m *metrics.Metrics, brokers ...string) *OutboxPoller {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return newOutboxPoller(repo, w, m)
}

func newOutboxPoller(repo repository.OutboxRepository, w MessageWriter, m *metrics.Metrics) *OutboxPoller {
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: time.Second,
		repo:      repo,
		writer:    w,
		breaker:   circuitbreaker.New[struct{}](circuitbreaker.DefaultConfig("kafka-outbox")),
		metrics:   m,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.Unprocessed(ctx, batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		errPublish := p.publish(ctx, event)
		p.metrics.Published(errPublish == nil)
		if errors.Is(errPublish, gobreaker.ErrOpenState) || errors.Is(errPublish, gobreaker.ErrTooManyRequests) {
			// broker is down, keep the rest for the next tick
			log.Warn().Int64("event_id", event.ID).Msg("outbox publishing paused, circuit open")
			return
		}
		if errPublish != nil {
			log.Error().Err(errPublish).Int64("event_id", event.ID).Msg("failed to publish event")
			continue
		}

		if errMark := p.repo.MarkProcessed(ctx, event.ID); errMark != nil {
			log.Error().Err(errMark).Int64("event_id", event.ID).Msg("failed to mark event as processed")
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // invoice id keeps events of one invoice ordered
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	_, err := p.breaker.Execute(func() (struct{}, error) {
		writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return struct{}{}, p.writer.WriteMessages(writeCtx, msg)
	})
	return err
}
