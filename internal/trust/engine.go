package trust

import (
	"context"
	"math"
	"time"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/cache"
	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/domain"
)

type Engine struct {
	cache    cache.TrustScoreCache
	cacheTTL time.Duration
}

func NewEngine(cacheStore cache.TrustScoreCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopTrustScoreCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 300 * time.Second
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// Assess derives a trust score and credit limit for one customer from their
// payment history. The score is deterministic for a given history, so results
// are cached per customer and the cache key only needs the customer id.
func (e *Engine) Assess(ctx context.Context, customerID string, payments []domain.CustomerPayment) domain.TrustAssessment {
	cacheKey := "pos:trust:" + customerID
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok && cached.PaymentsConsidered == len(payments) {
		return *cached
	}

	assessment := domain.TrustAssessment{
		CustomerID:         customerID,
		Score:              scorePayments(payments),
		PaymentsConsidered: len(payments),
		GeneratedAt:        time.Now().UTC(),
	}
	assessment.CreditLimitCents = creditLimitFor(assessment.Score, payments)

	_ = e.cache.Set(ctx, cacheKey, &assessment, e.cacheTTL)
	return assessment
}

// scorePayments blends punctuality and track-record length into a 0-100 score.
// A customer with no history sits at the neutral baseline.
func scorePayments(payments []domain.CustomerPayment) float64 {
	if len(payments) == 0 {
		return 40
	}

	onTime := 0
	for _, payment := range payments {
		if !payment.PaidAt.After(payment.DueDate) {
			onTime++
		}
	}
	punctuality := float64(onTime) / float64(len(payments))

	historyDepth := clamp(float64(len(payments))/12.0, 0, 1)

	score := 40 + 45*punctuality + 15*historyDepth
	return round2(clamp(score, 0, 100))
}

// creditLimitFor sizes the credit line from the score and the customer's
// average payment. Customers below a minimum score get no credit at all.
func creditLimitFor(score float64, payments []domain.CustomerPayment) int64 {
	if score < 50 || len(payments) == 0 {
		return 0
	}

	total := int64(0)
	for _, payment := range payments {
		total += payment.AmountCents
	}
	avg := total / int64(len(payments))

	multiplier := 1.0 + (score-50)/25.0
	limit := int64(math.Round(float64(avg) * multiplier))
	if limit < 0 {
		return 0
	}
	return limit
}

func clamp(val float64, minVal float64, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
