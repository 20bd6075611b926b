package usecase

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// ComputeLadder returns referencePrice * (1 + offset) for every offset, in the
// order given. Offsets are expected to be distinct and sorted ascending.
func ComputeLadder(referencePrice decimal.Decimal, offsets []decimal.Decimal) []decimal.Decimal {
	rungs := make([]decimal.Decimal, len(offsets))
	for i, off := range offsets {
		rungs[i] = referencePrice.Mul(one.Add(off))
	}
	return rungs
}

// EligibleRungs keeps the rungs the mark price has already reached.
func EligibleRungs(ladder []decimal.Decimal, markPrice decimal.Decimal) []decimal.Decimal {
	var eligible []decimal.Decimal
	for _, r := range ladder {
		if r.LessThanOrEqual(markPrice) {
			eligible = append(eligible, r)
		}
	}
	return eligible
}

// HighestEligible picks the deepest rung at or below markPrice.
func HighestEligible(ladder []decimal.Decimal, markPrice decimal.Decimal) (decimal.Decimal, bool) {
	eligible := EligibleRungs(ladder, markPrice)
	if len(eligible) == 0 {
		return decimal.Zero, false
	}
	return decimal.Max(eligible[0], eligible[1:]...), true
}
