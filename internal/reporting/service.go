package reporting

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/bizdesk/bizdesk/internal/customers"
	"github.com/bizdesk/bizdesk/internal/observability"
	"github.com/bizdesk/bizdesk/internal/sales"
	"github.com/bizdesk/bizdesk/internal/shared"
)

// CustomerLister lists an owner's customers.
type CustomerLister interface {
	List(ctx context.Context, owner string) ([]customers.Customer, error)
}

// SaleLister lists an owner's sales.
type SaleLister interface {
	List(ctx context.Context, owner string) ([]sales.Sale, error)
}

// Service serves cached dashboards.
type Service struct {
	customers CustomerLister
	sales     SaleLister
	cache     *Cache
	metrics   *observability.Metrics
	logger    *slog.Logger
	builds    singleflight.Group
}

// NewService constructs a Service. cache and metrics may be nil.
func NewService(cs CustomerLister, ss SaleLister, cache *Cache, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{customers: cs, sales: ss, cache: cache, metrics: metrics, logger: logger}
}

// Dashboard returns the owner's dashboard, from cache when the owner's
// version has not moved since it was built. Cache failures degrade to a
// fresh build.
func (s *Service) Dashboard(ctx context.Context, owner string) (Dashboard, error) {
	if owner == "" {
		return Dashboard{}, shared.ErrUnauthenticated
	}
	key, err := s.cache.BuildKey(ctx, owner)
	if err != nil {
		s.logger.Warn("dashboard cache version failed", slog.String("owner", owner), slog.Any("error", err))
		return s.build(ctx, owner)
	}

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		s.metrics.CacheLookup(true)
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("dashboard cache read failed", slog.String("key", key), slog.Any("error", err))
	}
	s.metrics.CacheLookup(false)

	resultChan := s.builds.DoChan(key, func() (interface{}, error) {
		buildCtx := context.WithoutCancel(ctx)
		d, err := s.build(buildCtx, owner)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(buildCtx, key, d); err != nil {
			s.logger.Warn("dashboard cache write failed", slog.String("key", key), slog.Any("error", err))
		}
		return d, nil
	})
	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Dashboard{}, res.Err
		}
		return res.Val.(Dashboard), nil
	}
}

func (s *Service) build(ctx context.Context, owner string) (Dashboard, error) {
	cs, err := s.customers.List(ctx, owner)
	if err != nil {
		return Dashboard{}, err
	}
	ss, err := s.sales.List(ctx, owner)
	if err != nil {
		return Dashboard{}, err
	}
	return Build(cs, ss), nil
}

// Invalidate drops the owner's cached dashboards.
func (s *Service) Invalidate(ctx context.Context, owner string) error {
	return s.cache.Bump(ctx, owner)
}

// OwnerChanged implements shared.ChangeListener.
func (s *Service) OwnerChanged(ctx context.Context, owner string) {
	if err := s.Invalidate(ctx, owner); err != nil {
		s.logger.Warn("dashboard invalidation failed", slog.String("owner", owner), slog.Any("error", err))
	}
}

// Warm builds and caches the owner's dashboard ahead of the next visit.
func (s *Service) Warm(ctx context.Context, owner string) error {
	_, err := s.Dashboard(ctx, owner)
	return err
}

var _ shared.ChangeListener = (*Service)(nil)
