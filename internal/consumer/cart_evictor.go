package consumer

import (
	"context"
	"errors"

	"github.com/fjod/bookcart/internal/cache"
	"github.com/fjod/bookcart/internal/service"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const GroupID = "bookcart-cart-evictor"

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartEvictor drops cached carts named by invoice.created events. Checkout
// already evicts after commit; this catches evictions lost to a cache outage.
type CartEvictor struct {
	reader MessageReader
	cache  cache.CartCache
}

func NewCartEvictor(cartCache cache.CartCache, topic string, brokers ...string) *CartEvictor {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &CartEvictor{reader: reader, cache: cartCache}
}

func (e *CartEvictor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		e.evictNext(ctx)
	}
}

func (e *CartEvictor) Close() {
	if err := e.reader.Close(); err != nil {
		log.Error().Err(err).Msg("error closing kafka reader")
	}
}

func (e *CartEvictor) evictNext(ctx context.Context) {
	m, err := e.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			log.Error().Err(err).Msg("error reading message")
		}
		return
	}

	if eventType(m) != service.EventInvoiceCreated {
		return
	}

	var event service.InvoiceCreatedEvent
	if errUnmarshal := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(m.Value, &event); errUnmarshal != nil {
		log.Error().Err(errUnmarshal).Str("key", string(m.Key)).Msg("error parsing invoice event")
		return
	}

	key, ok := cartKey(event)
	if !ok {
		log.Warn().Int64("invoice_id", event.InvoiceID).Msg("invoice event has no cart owner")
		return
	}

	if errDelete := e.cache.Delete(ctx, key.String()); errDelete != nil {
		log.Error().Err(errDelete).Str("cart", key.String()).Msg("failed to evict cart from cache")
	}
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}

func cartKey(event service.InvoiceCreatedEvent) (service.CartKey, bool) {
	switch {
	case event.CustomerID != nil:
		return service.ByCustomer(*event.CustomerID), true
	case event.Token != "":
		return service.ByToken(event.Token), true
	default:
		return nil, false
	}
}
