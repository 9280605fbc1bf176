package hourselection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCautionType(t *testing.T) {
	var tests = []struct {
		given    string
		expected CautionType
	}{
		{"", CautionIntermediate},
		{"suave", CautionSuave},
		{" Intermediate ", CautionIntermediate},
		{"AGGRESSIVE", CautionAggressive},
		{"scrooge", CautionScrooge},
	}
	for _, tt := range tests {
		t.Run(tt.given, func(t *testing.T) {
			ct, err := ParseCautionType(tt.given)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, ct)
		})
	}

	_, err := ParseCautionType("stingy")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestOptionsJSON(t *testing.T) {
	var opts Options
	err := json.Unmarshal([]byte(`{"cautionhourType":"scrooge","absoluteTopPrice":3.5,"blockNocturnal":true}`), &opts)
	require.NoError(t, err)
	assert.Equal(t, CautionScrooge, opts.CautionHourType)
	require.NotNil(t, opts.AbsoluteTopPrice)
	assert.Equal(t, 3.5, *opts.AbsoluteTopPrice)
	assert.Nil(t, opts.MinPrice)
	assert.True(t, opts.BlockNocturnal)

	err = json.Unmarshal([]byte(`{"cautionhourType":"stingy"}`), &opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = json.Marshal(Options{CautionHourType: CautionType(7)})
	assert.Error(t, err)
}

func TestHourObjectAddRemove(t *testing.T) {
	h := NewHourObject()
	h.NonHours = []int{0, 1, 2, 3}
	h.CautionHours = []int{4}
	h.DynamicCautionHours[4] = 0.4

	expensive := h.AddExpensiveHours([]int{1, 4})
	assert.Equal(t, []int{0, 2, 3}, expensive.NonHours)
	assert.Equal(t, []int{1, 4}, expensive.CautionHours)
	assert.Equal(t, map[int]float64{1: 0, 4: 0}, expensive.DynamicCautionHours)
	assert.NoError(t, expensive.Validate(5))

	// the receiver is left untouched
	assert.Equal(t, []int{0, 1, 2, 3}, h.NonHours)
	assert.Equal(t, 0.4, h.DynamicCautionHours[4])

	cheap := expensive.RemoveCheapHours([]int{4, 0})
	assert.Equal(t, []int{0, 2, 3, 4}, cheap.NonHours)
	assert.Equal(t, []int{1}, cheap.CautionHours)
	assert.Equal(t, map[int]float64{1: 0}, cheap.DynamicCautionHours)
	assert.NoError(t, cheap.Validate(5))
}

func TestHourObjectValidate(t *testing.T) {
	h := NewHourObject()
	assert.NoError(t, h.Validate(0))
	assert.True(t, h.IsEmpty())

	h.NonHours = []int{0, 1}
	h.CautionHours = []int{1}
	assert.Error(t, h.Validate(2))

	h.CautionHours = []int{2}
	assert.Error(t, h.Validate(2))

	h.CautionHours = []int{}
	h.DynamicCautionHours[0] = 0.5
	assert.Error(t, h.Validate(2))

	delete(h.DynamicCautionHours, 0)
	assert.Error(t, h.Validate(3))
	assert.NoError(t, h.Validate(2))
}
