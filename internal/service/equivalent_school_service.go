package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
)

type equivalentSchoolSource interface {
	EquivalentSchools(ctx context.Context, schoolID string) ([]string, error)
}

type schoolPoolCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Forget(ctx context.Context, keys ...string) error
}

// EquivalentSchoolService resolves the sibling-school pool used for booked counts.
type EquivalentSchoolService struct {
	source  equivalentSchoolSource
	cache   schoolPoolCache
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEquivalentSchoolService builds the resolver. cache may be nil.
func NewEquivalentSchoolService(source equivalentSchoolSource, cache schoolPoolCache, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *EquivalentSchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquivalentSchoolService{source: source, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

func equivalentSchoolKey(schoolID string) string {
	return fmt.Sprintf("slots:equivalent-schools:%s", schoolID)
}

// Resolve returns schoolID plus its siblings. Lookup failures degrade to the
// requested school alone and never surface as errors.
func (s *EquivalentSchoolService) Resolve(ctx context.Context, schoolID string) []string {
	if s == nil || s.source == nil {
		return []string{schoolID}
	}

	key := equivalentSchoolKey(schoolID)
	if s.cache != nil {
		var cached []string
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit && len(cached) > 0 {
			return cached
		}
	}

	siblings, err := s.source.EquivalentSchools(ctx, schoolID)
	if !bestEffort(s.logger, s.metrics, "resolve_equivalent_schools", err, zap.String("school_id", schoolID)) {
		return []string{schoolID}
	}

	pool := lo.Uniq(append([]string{schoolID}, lo.Filter(siblings, func(id string, _ int) bool { return id != "" })...))
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, pool, s.ttl)
	}
	return pool
}

// Invalidate drops the cached pool of each school so the next lookup asks MDM.
func (s *EquivalentSchoolService) Invalidate(ctx context.Context, schoolIDs ...string) error {
	if s == nil || s.cache == nil || len(schoolIDs) == 0 {
		return nil
	}
	keys := lo.Map(lo.Uniq(schoolIDs), func(id string, _ int) string { return equivalentSchoolKey(id) })
	if err := s.cache.Forget(ctx, keys...); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate equivalent schools")
	}
	return nil
}
