package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/bookcart/internal/cache"
	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/inventory"
	"github.com/fjod/bookcart/internal/metrics"
	"github.com/fjod/bookcart/internal/repository"
	"github.com/fjod/bookcart/pkg/logger"
)

type CheckoutService struct {
	store   repository.Store
	cache   cache.CartCache
	ledger  *inventory.Ledger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewCheckoutService(store repository.Store, cartCache cache.CartCache, ledger *inventory.Ledger, m *metrics.Metrics) *CheckoutService {
	if cartCache == nil {
		cartCache = cache.Noop{}
	}
	if ledger == nil {
		ledger = inventory.NewLedger()
	}
	return &CheckoutService{
		store:   store,
		cache:   cartCache,
		ledger:  ledger,
		metrics: m,
		now:     time.Now,
	}
}

// checkoutRun carries the state of one checkout through its steps.
type checkoutRun struct {
	key      CartKey
	status   domain.CheckoutStatus
	now      time.Time
	tx       repository.Repositories
	cart     *domain.Cart
	snapshot domain.Cart
	books    map[int64]*domain.Book
	invoice  *domain.Invoice
}

func (r *checkoutRun) transition(to domain.CheckoutStatus) error {
	if !domain.CanTransitionTo(r.status, to) {
		return fmt.Errorf("%w: %s -> %s", IllegalTransitionError, r.status, to)
	}
	r.status = to
	return nil
}

// Checkout turns the cart for key into an invoice. Stock, invoice and the
// emptied cart are written in one transaction; on any error nothing is written
// and the error is returned as is.
func (s *CheckoutService) Checkout(ctx context.Context, key CartKey) (*domain.Invoice, error) {
	start := time.Now()
	run := &checkoutRun{key: key, status: domain.CheckoutStatusValidating, now: s.now()}

	if err := key.validate(); err != nil {
		return nil, s.fail(ctx, run, err, start)
	}

	steps := []func(ctx context.Context, run *checkoutRun) error{
		s.validateCart,
		s.checkStock,
		s.reserveStock,
		s.issueInvoice,
		s.clearCart,
	}

	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		run.tx = tx
		for _, step := range steps {
			if err := step(ctx, run); err != nil {
				return err
			}
			logger.FromContext(ctx).Debug().Str("cart", key.String()).Str("status", run.status.String()).Msg("checkout step done")
		}
		return run.transition(domain.CheckoutStatusCompleted)
	})
	if err != nil {
		return nil, s.fail(ctx, run, err, start)
	}

	invalidateCache(ctx, s.cache, key)
	s.metrics.ObserveCheckout(run.status.String(), "", time.Since(start))
	logger.FromContext(ctx).Info().
		Str("cart", key.String()).
		Int64("invoice_id", run.invoice.ID).
		Str("number", run.invoice.Number).
		Str("total", run.invoice.Total.String()).
		Msg("checkout completed")
	return run.invoice, nil
}

func (s *CheckoutService) fail(ctx context.Context, run *checkoutRun, err error, start time.Time) error {
	failedAt := run.status
	run.status = domain.CheckoutStatusFailed
	s.metrics.ObserveCheckout(run.status.String(), Reason(err), time.Since(start))

	event := logger.FromContext(ctx).Error()
	if domain.IsClientError(err) {
		event = logger.FromContext(ctx).Warn()
	}
	event.Err(err).Str("cart", run.key.String()).Str("failed_at", failedAt.String()).Msg("checkout failed")
	return err
}

func (s *CheckoutService) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	if id <= 0 {
		return nil, domain.ErrInvoiceNotFound
	}
	return s.store.Invoices().FindByID(ctx, id)
}
