package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/bookcart/internal/cache"
	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/metrics"
	"github.com/fjod/bookcart/internal/repository"
	"github.com/fjod/bookcart/pkg/logger"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	store   repository.Store
	cache   cache.CartCache
	metrics *metrics.Metrics
	sfg     singleflight.Group // Prevents cache stampede
	now     func() time.Time
}

func NewCartService(store repository.Store, cartCache cache.CartCache, m *metrics.Metrics) *CartService {
	if cartCache == nil {
		cartCache = cache.Noop{}
	}
	return &CartService{
		store:   store,
		cache:   cartCache,
		metrics: m,
		now:     time.Now,
	}
}

// GetOrCreateCart returns the cart for key, creating an empty one if none exists.
// Calling it twice with the same key yields the same cart.
func (s *CartService) GetOrCreateCart(ctx context.Context, key CartKey) (*domain.Cart, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}

	var cart *domain.Cart
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		var err error
		cart, err = getOrCreate(ctx, tx, key, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// GetCart is GetOrCreateCart served through the cart cache.
func (s *CartService) GetCart(ctx context.Context, key CartKey) (*domain.Cart, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}

	v, err, _ := s.sfg.Do(key.String(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, key.String())
		if err == nil {
			s.metrics.CacheLookup("hit")
			return cart, nil
		}
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.CacheLookup("miss")
		} else {
			s.metrics.CacheLookup("error")
			logger.FromContext(ctx).Warn().Err(err).Str("cart", key.String()).Msg("cache get error")
		}

		cart, err = s.GetOrCreateCart(ctx, key)
		if err != nil {
			return nil, err
		}

		if errSet := s.cache.Set(ctx, key.String(), cart); errSet != nil {
			logger.FromContext(ctx).Warn().Err(errSet).Str("cart", key.String()).Msg("cache set error")
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem adds quantity copies of the book, merging with an existing line for it.
func (s *CartService) AddItem(ctx context.Context, key CartKey, bookID int64, quantity int) (*domain.Cart, error) {
	if quantity <= 0 || quantity > domain.MaxItemQuantity {
		s.metrics.CartOperation("add_item", result(domain.ErrInvalidQuantity))
		return nil, domain.ErrInvalidQuantity
	}
	return s.mutate(ctx, "add_item", key, func(tx repository.Repositories, cart *domain.Cart) error {
		book, err := tx.Books().FindByID(ctx, bookID)
		if err != nil {
			return err
		}
		item, err := cart.AddItem(*book, quantity)
		if err != nil {
			return err
		}
		if item.ID == 0 {
			// a line the loaded cart did not see was committed by someone else
			_, err := tx.CartItems().FindByCartAndBook(ctx, cart.ID, bookID)
			if err == nil {
				return domain.ErrConcurrencyConflict
			}
			if !errors.Is(err, domain.ErrItemNotFound) {
				return err
			}
		}
		return tx.CartItems().Save(ctx, item)
	})
}

// UpdateItemQuantity sets an item's quantity; zero or less removes it.
func (s *CartService) UpdateItemQuantity(ctx context.Context, key CartKey, itemID int64, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, "update_item", key, func(tx repository.Repositories, cart *domain.Cart) error {
		return s.applyQuantity(ctx, tx, cart, itemID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, key CartKey, itemID int64) (*domain.Cart, error) {
	return s.mutate(ctx, "remove_item", key, func(tx repository.Repositories, cart *domain.Cart) error {
		return s.applyQuantity(ctx, tx, cart, itemID, 0)
	})
}

// ClearCart deletes every line. The cart itself is kept.
func (s *CartService) ClearCart(ctx context.Context, key CartKey) (*domain.Cart, error) {
	return s.mutate(ctx, "clear_cart", key, func(tx repository.Repositories, cart *domain.Cart) error {
		for _, item := range cart.Clear() {
			if err := tx.CartItems().Delete(ctx, item.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *CartService) applyQuantity(ctx context.Context, tx repository.Repositories, cart *domain.Cart, itemID int64, quantity int) error {
	stored, err := tx.CartItems().FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	// an item id from someone else's cart is treated as missing
	if stored.CartID != cart.ID {
		return domain.ErrItemNotFound
	}

	updated, removed, err := cart.UpdateItemQuantity(itemID, quantity)
	if err != nil {
		return err
	}
	if removed != nil {
		return tx.CartItems().Delete(ctx, removed.ID)
	}
	return tx.CartItems().Save(ctx, updated)
}

// mutate runs fn against the cart for key in one transaction, persists the
// recalculated totals and drops the cached copy once committed.
func (s *CartService) mutate(ctx context.Context, op string, key CartKey, fn func(tx repository.Repositories, cart *domain.Cart) error) (*domain.Cart, error) {
	if err := key.validate(); err != nil {
		s.metrics.CartOperation(op, result(err))
		return nil, err
	}

	var cart *domain.Cart
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		now := s.now()
		c, err := getOrCreate(ctx, tx, key, now)
		if err != nil {
			return err
		}
		if err := fn(tx, c); err != nil {
			return err
		}
		c.UpdatedAt = now
		if err := tx.Carts().Save(ctx, c); err != nil {
			return err
		}
		cart = c
		return nil
	})
	s.metrics.CartOperation(op, result(err))
	if err != nil {
		l := logger.FromContext(ctx)
		if domain.IsClientError(err) {
			l.Debug().Err(err).Str("op", op).Str("cart", key.String()).Msg("cart operation rejected")
		} else {
			l.Error().Err(err).Str("op", op).Str("cart", key.String()).Msg("cart operation failed")
		}
		return nil, err
	}

	invalidateCache(ctx, s.cache, key)
	return cart, nil
}

func invalidateCache(ctx context.Context, c cache.CartCache, key CartKey) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := c.Delete(ctx, key.String()); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("cart", key.String()).Msg("cache invalidate error")
	}
}
