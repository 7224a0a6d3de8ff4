package cartstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_pizza/internal/cache"
	"github.com/fjod/go_pizza/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedStorage keeps carts in the repository and serves reads through the cache.
// Cache failures are logged and never fail the call.
type CachedStorage struct {
	repo  CartRepository
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede
	log   *zap.Logger

	mu      sync.Mutex
	loading map[string]*bool // repository reads in flight; set when a Save lands meanwhile
}

func NewCachedStorage(repo CartRepository, cache cache.CartCache, log *zap.Logger) *CachedStorage {
	return &CachedStorage{
		repo:  repo,
		cache:   cache,
		log:     log,
		loading: make(map[string]*bool),
	}
}

// Load returns the saved cart, or nil when the session has none.
func (s *CachedStorage) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cache get failed", zap.String("session_id", sessionID), zap.Error(err))
		}

		stale := s.beginLoad(sessionID)
		cart, err = s.repo.GetCart(ctx, sessionID)
		s.endLoad(sessionID, stale, cart, err)
		if errors.Is(err, ErrCartNotFound) {
			return (*domain.Cart)(nil), nil
		}
		if err != nil {
			return nil, err
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// Save upserts the cart. An emptied cart has its document removed instead.
func (s *CachedStorage) Save(ctx context.Context, cart *domain.Cart) error {
	if len(cart.Lines) == 0 {
		if err := s.repo.DeleteCart(ctx, cart.SessionID); err != nil && !errors.Is(err, ErrCartNotFound) {
			return err
		}
	} else if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return err
	}
	s.mu.Lock()
	if stale, ok := s.loading[cart.SessionID]; ok {
		*stale = true
	}
	s.mu.Unlock()
	s.invalidate(cart.SessionID)
	return nil
}

func (s *CachedStorage) beginLoad(sessionID string) *bool {
	stale := new(bool)
	s.mu.Lock()
	s.loading[sessionID] = stale
	s.mu.Unlock()
	return stale
}

// endLoad fills the cache with what the repository returned, unless a Save
// for the session committed while the read was in flight.
func (s *CachedStorage) endLoad(sessionID string, stale *bool, cart *domain.Cart, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading[sessionID] == stale {
		delete(s.loading, sessionID)
	}
	if err != nil || *stale {
		return
	}
	s.fill(sessionID, cart)
}

func (s *CachedStorage) fill(sessionID string, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, sessionID, cart); err != nil {
		s.log.Warn("cache set failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *CachedStorage) invalidate(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.Warn("cache invalidate failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
