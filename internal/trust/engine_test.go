package trust

import (
	"context"
	"testing"
	"time"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/domain"
)

func paymentAt(due time.Time, paid time.Time, amountCents int64) domain.CustomerPayment {
	return domain.CustomerPayment{
		AmountCents: amountCents,
		DueDate:     due,
		PaidAt:      paid,
	}
}

func TestAssessNoHistoryGivesNeutralScoreNoCredit(t *testing.T) {
	engine := NewEngine(nil, 0)

	assessment := engine.Assess(context.Background(), "cust-1", nil)
	if assessment.Score != 40 {
		t.Fatalf("expected neutral score 40, got %v", assessment.Score)
	}
	if assessment.CreditLimitCents != 0 {
		t.Fatalf("no history must not earn credit, got %d", assessment.CreditLimitCents)
	}
}

func TestAssessAllOnTimeScoresHigh(t *testing.T) {
	engine := NewEngine(nil, 0)
	now := time.Now().UTC()

	payments := make([]domain.CustomerPayment, 0, 12)
	for i := 0; i < 12; i++ {
		due := now.AddDate(0, -i, 0)
		payments = append(payments, paymentAt(due, due.AddDate(0, 0, -1), 500_000))
	}

	assessment := engine.Assess(context.Background(), "cust-2", payments)
	if assessment.Score != 100 {
		t.Fatalf("12 punctual payments should max the score, got %v", assessment.Score)
	}
	if assessment.CreditLimitCents <= 500_000 {
		t.Fatalf("high score should multiply the average payment, got %d", assessment.CreditLimitCents)
	}
	if assessment.PaymentsConsidered != 12 {
		t.Fatalf("expected 12 payments considered, got %d", assessment.PaymentsConsidered)
	}
}

func TestAssessChronicallyLatePayerGetsNoCredit(t *testing.T) {
	engine := NewEngine(nil, 0)
	now := time.Now().UTC()

	payments := []domain.CustomerPayment{
		paymentAt(now.AddDate(0, -3, 0), now.AddDate(0, -2, 0), 300_000),
		paymentAt(now.AddDate(0, -2, 0), now.AddDate(0, -1, 0), 300_000),
		paymentAt(now.AddDate(0, -1, 0), now, 300_000),
	}

	assessment := engine.Assess(context.Background(), "cust-3", payments)
	if assessment.Score >= 50 {
		t.Fatalf("all-late history should stay below credit threshold, got %v", assessment.Score)
	}
	if assessment.CreditLimitCents != 0 {
		t.Fatalf("sub-threshold score must not earn credit, got %d", assessment.CreditLimitCents)
	}
}

func TestAssessIsDeterministic(t *testing.T) {
	engine := NewEngine(nil, 0)
	now := time.Now().UTC()

	payments := []domain.CustomerPayment{
		paymentAt(now.AddDate(0, -2, 0), now.AddDate(0, -2, -1), 250_000),
		paymentAt(now.AddDate(0, -1, 0), now.AddDate(0, -1, 2), 250_000),
	}

	first := engine.Assess(context.Background(), "cust-4", payments)
	second := engine.Assess(context.Background(), "cust-4", payments)
	if first.Score != second.Score || first.CreditLimitCents != second.CreditLimitCents {
		t.Fatalf("same history must score identically: %+v vs %+v", first, second)
	}
}
