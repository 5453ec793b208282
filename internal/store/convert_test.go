package store

import (
	"errors"
	"testing"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/domain"
)

func TestPlanConversionBufferAloneSuffices(t *testing.T) {
	plan, err := PlanConversion(10, 50, 30, 120, domain.ConversionModePartial)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if plan.PacksOpened != 0 {
		t.Fatalf("expected no packs opened, got %d", plan.PacksOpened)
	}
	if plan.DrawnFromBuffer != 30 {
		t.Fatalf("expected 30 drawn from buffer, got %d", plan.DrawnFromBuffer)
	}
	if plan.BufferBefore != 50 || plan.BufferAfter != 20 {
		t.Fatalf("expected buffer 50 -> 20, got %d -> %d", plan.BufferBefore, plan.BufferAfter)
	}
}

func TestPlanConversionOpensPacksForRemainder(t *testing.T) {
	plan, err := PlanConversion(10, 30, 200, 120, domain.ConversionModePartial)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if plan.PacksOpened != 2 {
		t.Fatalf("expected 2 packs opened, got %d", plan.PacksOpened)
	}
	if plan.DrawnFromBuffer != 30 {
		t.Fatalf("expected full buffer draw of 30, got %d", plan.DrawnFromBuffer)
	}
	if plan.BufferAfter != 70 {
		t.Fatalf("expected leftover buffer 70, got %d", plan.BufferAfter)
	}
}

func TestPlanConversionFullModeMovesWholePacks(t *testing.T) {
	plan, err := PlanConversion(10, 50, 600, 120, domain.ConversionModeFull)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if plan.PacksOpened != 5 {
		t.Fatalf("expected 5 packs, got %d", plan.PacksOpened)
	}
	if plan.DrawnFromBuffer != 0 {
		t.Fatalf("full mode must not draw from buffer, got %d", plan.DrawnFromBuffer)
	}
	if plan.BufferAfter != 50 {
		t.Fatalf("full mode must leave buffer untouched, got %d", plan.BufferAfter)
	}
}

func TestPlanConversionFullModeRejectsNonMultiple(t *testing.T) {
	_, err := PlanConversion(10, 0, 100, 120, domain.ConversionModeFull)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestPlanConversionInsufficientStock(t *testing.T) {
	_, err := PlanConversion(1, 10, 500, 120, domain.ConversionModePartial)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestPlanConversionRejectsNonPositiveInputs(t *testing.T) {
	if _, err := PlanConversion(10, 0, 0, 120, domain.ConversionModePartial); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity for zero quantity, got %v", err)
	}
	if _, err := PlanConversion(10, 0, 5, 0, domain.ConversionModePartial); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity for zero ratio, got %v", err)
	}
	if _, err := PlanConversion(10, 0, 5, 120, "bulk"); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity for unknown mode, got %v", err)
	}
}

// Conservation: pieces are only moved between pack, buffer and target
// representations, never created or destroyed.
func TestPlanConversionConservesPieces(t *testing.T) {
	cases := []struct {
		onHand, buffer, qty, ratio int
	}{
		{10, 50, 30, 120},
		{10, 30, 200, 120},
		{3, 0, 7, 12},
		{5, 119, 120, 120},
		{1, 0, 1, 120},
	}
	for _, tc := range cases {
		plan, err := PlanConversion(tc.onHand, tc.buffer, tc.qty, tc.ratio, domain.ConversionModePartial)
		if err != nil {
			t.Fatalf("plan(%+v) failed: %v", tc, err)
		}
		liberated := plan.PacksOpened * tc.ratio
		consumedFromNewPacks := tc.qty - plan.DrawnFromBuffer
		if plan.PacksOpened > 0 {
			if plan.DrawnFromBuffer != tc.buffer {
				t.Fatalf("plan(%+v): packs opened but buffer not fully drained first", tc)
			}
			if liberated != consumedFromNewPacks+plan.BufferAfter {
				t.Fatalf("plan(%+v): liberated %d != consumed %d + leftover %d", tc, liberated, consumedFromNewPacks, plan.BufferAfter)
			}
		} else {
			if plan.BufferBefore != plan.DrawnFromBuffer+plan.BufferAfter {
				t.Fatalf("plan(%+v): buffer not conserved", tc)
			}
		}
	}
}
