package hourselection

import (
	"fmt"
	"math"
)

type cautionRule struct {
	// threshold is the normalized price from which an hour is a caution hour.
	threshold float64
	// ceiling is the allowance given at the threshold.
	ceiling float64
}

var cautionRules = [cautionTypeCount]cautionRule{
	CautionSuave:        {threshold: 0.75, ceiling: 0.75},
	CautionIntermediate: {threshold: 0.50, ceiling: 0.50},
	CautionAggressive:   {threshold: 0.40, ceiling: 0.40},
	CautionScrooge:      {threshold: 0.30, ceiling: 0},
}

// allowance falls linearly from the ceiling at the threshold to zero for the most expensive hour.
func (r cautionRule) allowance(normalized float64) float64 {
	if r.threshold >= 1 {
		return 0
	}
	a := r.ceiling * (1 - normalized) / (1 - r.threshold)
	return round2(math.Max(0, math.Min(r.ceiling, a)))
}

// HourDecision is the classification of one ranked hour.
type HourDecision struct {
	Hour        int
	IsForcedNon bool
	IsCaution   bool
	PerMax      float64
	Allowance   float64
}

// Decide classifies a single ranked hour.
func Decide(h RankedHour, ctype CautionType, peak, minimumLoadKW float64) HourDecision {
	d := HourDecision{Hour: h.Hour, PerMax: h.PerMax, Allowance: 1}
	switch {
	case h.Flat:
	case h.Blocked:
		d.IsCaution = true
		d.Allowance = 0
	case h.ForcedNon:
		d.IsForcedNon = true
	case h.Normalized >= cautionRules[ctype].threshold:
		d.IsCaution = true
		d.Allowance = cautionRules[ctype].allowance(h.Normalized)
		if peak > 0 && d.Allowance*peak < minimumLoadKW {
			d.Allowance = 0
		}
	}
	return d
}

// Classify builds the HourObject for ranked hours. On a malformed entry the object built so far
// is returned together with an error wrapping ErrMalformedEntry.
func Classify(ranked []RankedHour, ctype CautionType, peak, minimumLoadKW float64) (HourObject, error) {
	ret := NewHourObject()
	if !ctype.valid() {
		return ret, fmt.Errorf("%w: unknown cautionhour type %d", ErrInvalidOptions, int(ctype))
	}
	seen := make(map[int]bool, len(ranked))
	for i, h := range ranked {
		if err := checkEntry(h, seen); err != nil {
			return ret, fmt.Errorf("%w: entry %d: %s", ErrMalformedEntry, i, err)
		}
		seen[h.Hour] = true

		ret.PriceDict[h.Hour] = h.Price
		d := Decide(h, ctype, peak, minimumLoadKW)
		if d.IsCaution {
			ret.CautionHours = insertHour(ret.CautionHours, d.Hour)
			ret.DynamicCautionHours[d.Hour] = d.Allowance
			continue
		}
		ret.NonHours = insertHour(ret.NonHours, d.Hour)
	}
	return ret, nil
}

func checkEntry(h RankedHour, seen map[int]bool) error {
	switch {
	case h.Hour < 0:
		return fmt.Errorf("negative hour %d", h.Hour)
	case seen[h.Hour]:
		return fmt.Errorf("duplicate hour %d", h.Hour)
	case math.IsNaN(h.Price) || math.IsInf(h.Price, 0):
		return fmt.Errorf("hour %d has invalid price %v", h.Hour, h.Price)
	case math.IsNaN(h.PerMax) || h.PerMax < 0 || h.PerMax > 1:
		return fmt.Errorf("hour %d has per max ratio %v", h.Hour, h.PerMax)
	}
	return nil
}
