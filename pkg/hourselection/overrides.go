package hourselection

import "sort"

// ApplyPriceLimits forces hours priced above the absolute top price into caution hours with a
// zero allowance and hours priced below the minimum price into non hours. The minimum price is
// applied last and wins when both match.
func ApplyPriceLimits(h HourObject, opts Options) HourObject {
	if opts.AbsoluteTopPrice != nil {
		h = h.AddExpensiveHours(hoursWhere(h.PriceDict, func(p float64) bool {
			return p > *opts.AbsoluteTopPrice
		}))
	}
	if opts.MinPrice != nil {
		h = h.RemoveCheapHours(hoursWhere(h.PriceDict, func(p float64) bool {
			return p < *opts.MinPrice
		}))
	}
	return h
}

func hoursWhere(prices map[int]float64, match func(float64) bool) []int {
	var ret []int
	for hour, p := range prices {
		if match(p) {
			ret = append(ret, hour)
		}
	}
	sort.Ints(ret)
	return ret
}
