package store

import (
	"fmt"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/domain"
)

// ConversionPlan is the pure outcome of one conversion computed against a
// snapshot of the source item. Both repository implementations compute the
// plan inside their critical section (mutex or row lock) and then apply it,
// so the arithmetic lives in one place.
type ConversionPlan struct {
	PacksOpened     int
	DrawnFromBuffer int
	BufferBefore    int
	BufferAfter     int
}

// PlanConversion computes pack and buffer deltas for converting quantity
// pieces out of a source item holding onHandPacks whole packs and
// bufferPieces already-liberated pieces.
//
// Partial mode draws from the buffer first and opens whole packs only for the
// remainder; the unconsumed part of freshly opened packs becomes the new
// buffer. Full mode moves whole packs only and never touches the buffer.
func PlanConversion(onHandPacks int, bufferPieces int, quantity int, piecesPerPack int, mode string) (ConversionPlan, error) {
	plan := ConversionPlan{BufferBefore: bufferPieces, BufferAfter: bufferPieces}
	if quantity < 1 {
		return plan, fmt.Errorf("%w: quantity must be positive", ErrInvalidQuantity)
	}
	if piecesPerPack < 1 {
		return plan, fmt.Errorf("%w: pieces per pack must be positive", ErrInvalidQuantity)
	}

	switch mode {
	case domain.ConversionModeFull:
		if quantity%piecesPerPack != 0 {
			return plan, fmt.Errorf("%w: full mode quantity %d is not a multiple of %d", ErrInvalidQuantity, quantity, piecesPerPack)
		}
		packs := quantity / piecesPerPack
		if packs > onHandPacks {
			return plan, fmt.Errorf("%w: need %d packs, have %d", ErrInsufficientStock, packs, onHandPacks)
		}
		plan.PacksOpened = packs
		return plan, nil

	case domain.ConversionModePartial:
		drawn := quantity
		if drawn > bufferPieces {
			drawn = bufferPieces
		}
		plan.DrawnFromBuffer = drawn
		remaining := quantity - drawn
		if remaining == 0 {
			plan.BufferAfter = bufferPieces - drawn
			return plan, nil
		}
		packsNeeded := (remaining + piecesPerPack - 1) / piecesPerPack
		if packsNeeded > onHandPacks {
			return plan, fmt.Errorf("%w: need %d packs, have %d", ErrInsufficientStock, packsNeeded, onHandPacks)
		}
		plan.PacksOpened = packsNeeded
		plan.BufferAfter = packsNeeded*piecesPerPack - remaining
		return plan, nil

	default:
		return plan, fmt.Errorf("%w: unknown conversion mode %q", ErrInvalidQuantity, mode)
	}
}
