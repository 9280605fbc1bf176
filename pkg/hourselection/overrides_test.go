package hourselection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func limitsObject() HourObject {
	h := NewHourObject()
	h.NonHours = []int{0, 1}
	h.CautionHours = []int{2, 3}
	h.DynamicCautionHours = map[int]float64{2: 0.3, 3: 0.1}
	h.PriceDict = map[int]float64{0: 5, 1: 120, 2: 40, 3: 150}
	return h
}

func TestApplyPriceLimits(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		wantNon     []int
		wantCaution []int
		wantDynamic map[int]float64
	}{
		{
			name:        "no limits",
			wantNon:     []int{0, 1},
			wantCaution: []int{2, 3},
			wantDynamic: map[int]float64{2: 0.3, 3: 0.1},
		},
		{
			name:        "top price",
			opts:        Options{AbsoluteTopPrice: float(100)},
			wantNon:     []int{0},
			wantCaution: []int{1, 2, 3},
			wantDynamic: map[int]float64{1: 0, 2: 0.3, 3: 0},
		},
		{
			name:        "min price",
			opts:        Options{MinPrice: float(50)},
			wantNon:     []int{0, 1, 2},
			wantCaution: []int{3},
			wantDynamic: map[int]float64{3: 0.1},
		},
		{
			name:        "min price wins",
			opts:        Options{AbsoluteTopPrice: float(100), MinPrice: float(130)},
			wantNon:     []int{0, 1, 2},
			wantCaution: []int{3},
			wantDynamic: map[int]float64{3: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := limitsObject()
			got := ApplyPriceLimits(in, tt.opts)
			assert.Equal(t, tt.wantNon, got.NonHours)
			assert.Equal(t, tt.wantCaution, got.CautionHours)
			assert.Equal(t, tt.wantDynamic, got.DynamicCautionHours)
			assert.NoError(t, got.Validate(4))
			assert.Equal(t, limitsObject(), in)
		})
	}
}
