package hourselection

import "math"

// Normalize rescales prices into [0,1] keeping their order. The cheapest price maps to 0 and
// the most expensive to 1. A series where all prices are equal normalizes to all zeros and an
// empty series to an empty slice.
func Normalize(prices []float64) []float64 {
	ret := make([]float64, len(prices))
	if len(prices) == 0 {
		return ret
	}
	minPrice, maxPrice := minMax(prices)
	spread := maxPrice - minPrice
	if spread == 0 || math.IsNaN(spread) || math.IsInf(spread, 0) {
		return ret
	}
	for i, p := range prices {
		ret[i] = (p - minPrice) / spread
	}
	return ret
}

func minMax(prices []float64) (float64, float64) {
	minPrice, maxPrice := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
	}
	return minPrice, maxPrice
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
