package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/bookcart/internal/cache"
	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/service"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/assert"
)

func setupTestRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisCache(client), mr
}

// MockReader hands out queued messages, then blocks until ctx is done.
type MockReader struct {
	msgs chan kafka.Message
}

func newMockReader(msgs ...kafka.Message) *MockReader {
	r := &MockReader{msgs: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *MockReader) Close() error { return nil }

func invoiceMessage(t *testing.T, event service.InvoiceCreatedEvent) kafka.Message {
	t.Helper()
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{
		Value:   data,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(service.EventInvoiceCreated)}},
	}
}

func TestEvictNext_TokenCart(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupTestRedis(t)
	require.NoError(t, rc.Set(ctx, "token:guest-1", domain.NewTokenCart("guest-1", time.Now())))
	require.NoError(t, rc.Set(ctx, "token:guest-2", domain.NewTokenCart("guest-2", time.Now())))

	e := &CartEvictor{
		reader: newMockReader(invoiceMessage(t, service.InvoiceCreatedEvent{InvoiceID: 1, Token: "guest-1"})),
		cache:  rc,
	}
	e.evictNext(ctx)

	assert.Assert(t, !mr.Exists("cart:token:guest-1"))
	assert.Assert(t, mr.Exists("cart:token:guest-2"))
}

func TestEvictNext_CustomerCart(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupTestRedis(t)
	require.NoError(t, rc.Set(ctx, "customer:7", domain.NewCustomerCart(7, time.Now())))

	customerID := int64(7)
	e := &CartEvictor{
		reader: newMockReader(invoiceMessage(t, service.InvoiceCreatedEvent{InvoiceID: 2, CustomerID: &customerID})),
		cache:  rc,
	}
	e.evictNext(ctx)

	assert.Assert(t, !mr.Exists("cart:customer:7"))
}

func TestEvictNext_IgnoresOtherEventsAndBadPayloads(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupTestRedis(t)
	require.NoError(t, rc.Set(ctx, "token:guest-1", domain.NewTokenCart("guest-1", time.Now())))

	other := invoiceMessage(t, service.InvoiceCreatedEvent{Token: "guest-1"})
	other.Headers = []kafka.Header{{Key: "event_type", Value: []byte("invoice.voided")}}
	garbage := kafka.Message{
		Value:   []byte("{not json"),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(service.EventInvoiceCreated)}},
	}
	ownerless := invoiceMessage(t, service.InvoiceCreatedEvent{InvoiceID: 3})

	e := &CartEvictor{reader: newMockReader(other, garbage, ownerless), cache: rc}
	for range 3 {
		e.evictNext(ctx)
	}

	assert.Assert(t, mr.Exists("cart:token:guest-1"))
}

func TestEvictNext_CacheDown(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupTestRedis(t)
	mr.Close()

	e := &CartEvictor{
		reader: newMockReader(invoiceMessage(t, service.InvoiceCreatedEvent{Token: "guest-1"})),
		cache:  rc,
	}
	// logged, not fatal
	e.evictNext(ctx)
}

func TestRun_StopsOnCancel(t *testing.T) {
	rc, _ := setupTestRedis(t)
	e := &CartEvictor{reader: newMockReader(), cache: rc}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal(errors.New("evictor did not stop"))
	}
}
