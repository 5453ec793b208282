package cache

import (
	"context"
	"time"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/domain"
)

type TrustScoreCache interface {
	Get(ctx context.Context, key string) (*domain.TrustAssessment, bool, error)
	Set(ctx context.Context, key string, value *domain.TrustAssessment, ttl time.Duration) error
}

type NoopTrustScoreCache struct{}

func (NoopTrustScoreCache) Get(_ context.Context, _ string) (*domain.TrustAssessment, bool, error) {
	return nil, false, nil
}

func (NoopTrustScoreCache) Set(_ context.Context, _ string, _ *domain.TrustAssessment, _ time.Duration) error {
	return nil
}
