package hourselection

import (
	"sort"
)

// flatCurveStdDev is the standard deviation below which a price curve carries no signal.
const flatCurveStdDev = 0.05

// nocturnal hours run from nocturnalStart to nocturnalEnd inclusive.
const (
	nocturnalStart = 23
	nocturnalEnd   = 6
)

type RankInput struct {
	Prices     []float64
	Normalized []float64
	Type       CautionType
	// RangeStart is the hour of the first price.
	RangeStart int
	// DayLength is the number of hours in the day RangeStart belongs to. Hours at or past it
	// belong to the following day. Zero means 24.
	DayLength       int
	AdjustedAverage *float64
	BlockNocturnal  bool
}

// RankedHour is the annotated price of one hour.
type RankedHour struct {
	Hour       int
	HourOfDay  int
	Price      float64
	Normalized float64
	// PerMax is the price relative to the most expensive hour, clamped to [0,1].
	PerMax float64
	// Rank is the position in ascending price order, 0 is the cheapest.
	Rank      int
	Flat      bool
	ForcedNon bool
	Blocked   bool
}

// Rank annotates every price of the window. A flat curve is not ranked and every entry is
// marked Flat.
func Rank(in RankInput) []RankedHour {
	n := len(in.Prices)
	ret := make([]RankedHour, n)
	if n == 0 {
		return ret
	}
	dayLength := in.DayLength
	if dayLength <= 0 {
		dayLength = 24
	}
	normalized := in.Normalized
	if len(normalized) != n {
		normalized = Normalize(in.Prices)
	}

	for i, p := range in.Prices {
		hour := in.RangeStart + i
		hourOfDay := hour
		if hourOfDay >= dayLength {
			hourOfDay -= dayLength
		}
		ret[i] = RankedHour{
			Hour:       hour,
			HourOfDay:  hourOfDay,
			Price:      p,
			Normalized: normalized[i],
		}
	}

	if stdDev(in.Prices) < flatCurveStdDev {
		for i := range ret {
			ret[i].Flat = true
		}
		return ret
	}

	_, maxPrice := minMax(in.Prices)
	average := mean(in.Prices)
	if in.AdjustedAverage != nil {
		average = *in.AdjustedAverage
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return in.Prices[order[a]] < in.Prices[order[b]]
	})
	for rank, i := range order {
		ret[i].Rank = rank
	}

	for i := range ret {
		ret[i].PerMax = perMax(ret[i].Price, maxPrice)
		ret[i].ForcedNon = ret[i].Price <= 0 || ret[i].Price <= average
		ret[i].Blocked = in.BlockNocturnal && isNocturnal(ret[i].HourOfDay)
	}
	return ret
}

// Offsets returns the normalized prices relative to their mean keyed by hour.
// Fewer than two prices give an empty map.
func Offsets(normalized []float64, rangeStart int) map[int]float64 {
	ret := make(map[int]float64, len(normalized))
	if len(normalized) < 2 {
		return ret
	}
	m := mean(normalized)
	for i, v := range normalized {
		ret[rangeStart+i] = round2(v - m)
	}
	return ret
}

func perMax(price, maxPrice float64) float64 {
	if maxPrice <= 0 || price <= 0 {
		return 0
	}
	r := price / maxPrice
	if r > 1 {
		return 1
	}
	return round2(r)
}

func isNocturnal(hourOfDay int) bool {
	return hourOfDay >= nocturnalStart || hourOfDay <= nocturnalEnd
}
