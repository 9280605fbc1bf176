package hourselection

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrMalformedEntry = errors.New("malformed ranked entry")
	ErrInvalidOptions = errors.New("invalid hour selection options")
)

// Callers of Service.Update.
const (
	CallerToday    = "today"
	CallerTomorrow = "tomorrow"
	CallerHour     = "hour"
	CallerOptions  = "options"
)

// CautionType selects the allowance formula used for caution hours. The zero value is
// intermediate.
type CautionType int

const (
	CautionIntermediate CautionType = iota
	CautionSuave
	CautionAggressive
	CautionScrooge

	cautionTypeCount
)

var cautionTypeNames = [cautionTypeCount]string{
	CautionIntermediate: "intermediate",
	CautionSuave:        "suave",
	CautionAggressive:   "aggressive",
	CautionScrooge:      "scrooge",
}

func (c CautionType) String() string {
	if !c.valid() {
		return fmt.Sprintf("CautionType(%d)", int(c))
	}
	return cautionTypeNames[c]
}

func (c CautionType) valid() bool {
	return c >= 0 && c < cautionTypeCount
}

// ParseCautionType parses a case insensitive caution type name. Empty string means intermediate.
func ParseCautionType(s string) (CautionType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CautionIntermediate, nil
	}
	for i, name := range cautionTypeNames {
		if name == s {
			return CautionType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown cautionhour type %q", ErrInvalidOptions, s)
}

func (c CautionType) MarshalText() ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("%w: unknown cautionhour type %d", ErrInvalidOptions, int(c))
	}
	return []byte(c.String()), nil
}

func (c *CautionType) UnmarshalText(b []byte) error {
	t, err := ParseCautionType(string(b))
	if err != nil {
		return err
	}
	*c = t
	return nil
}

// ListType tags update notifications.
type ListType string

const (
	ListNonHours            ListType = "non"
	ListCautionHours        ListType = "caution"
	ListDynamicCautionHours ListType = "dynamic-caution"
	ListAll                 ListType = "all"
)

// Options is the scheduling policy snapshot read once per update cycle.
type Options struct {
	CautionHourType  CautionType `json:"cautionhourType" yaml:"cautionhourType"`
	AbsoluteTopPrice *float64    `json:"absoluteTopPrice,omitempty" yaml:"absoluteTopPrice"`
	MinPrice         *float64    `json:"minPrice,omitempty" yaml:"minPrice"`
	BlockNocturnal   bool        `json:"blockNocturnal" yaml:"blockNocturnal"`
	// CurrentPeak is the current peak load in kW.
	CurrentPeak float64 `json:"currentPeak" yaml:"currentPeak"`
	// AdjustedAverage is the reference price. nil means the arithmetic mean of the ranked prices.
	AdjustedAverage *float64 `json:"adjustedAverage,omitempty" yaml:"adjustedAverage"`
	// MinimumLoadKW is the smallest load worth running in a caution hour.
	MinimumLoadKW float64 `json:"minimumLoadKW" yaml:"minimumLoadKW"`
}

func (o Options) Validate() error {
	if !o.CautionHourType.valid() {
		return fmt.Errorf("%w: unknown cautionhour type %d", ErrInvalidOptions, int(o.CautionHourType))
	}
	if o.CurrentPeak < 0 {
		return fmt.Errorf("%w: negative peak %v", ErrInvalidOptions, o.CurrentPeak)
	}
	if o.MinimumLoadKW < 0 {
		return fmt.Errorf("%w: negative minimum load %v", ErrInvalidOptions, o.MinimumLoadKW)
	}
	return nil
}

// HourObject holds the classification of one day.
type HourObject struct {
	NonHours            []int           `json:"nonHours"`
	CautionHours        []int           `json:"cautionHours"`
	DynamicCautionHours map[int]float64 `json:"dynamicCautionHours"`
	OffsetDict          map[int]float64 `json:"offsetDict"`
	PriceDict           map[int]float64 `json:"priceDict"`
}

func NewHourObject() HourObject {
	return HourObject{
		NonHours:            []int{},
		CautionHours:        []int{},
		DynamicCautionHours: map[int]float64{},
		OffsetDict:          map[int]float64{},
		PriceDict:           map[int]float64{},
	}
}

func (h HourObject) IsEmpty() bool {
	return len(h.NonHours) == 0 && len(h.CautionHours) == 0
}

func (h HourObject) Clone() HourObject {
	return HourObject{
		NonHours:            append([]int{}, h.NonHours...),
		CautionHours:        append([]int{}, h.CautionHours...),
		DynamicCautionHours: cloneMap(h.DynamicCautionHours),
		OffsetDict:          cloneMap(h.OffsetDict),
		PriceDict:           cloneMap(h.PriceDict),
	}
}

func (h HourObject) IsCaution(hour int) bool {
	return containsHour(h.CautionHours, hour)
}

func (h HourObject) IsNon(hour int) bool {
	return containsHour(h.NonHours, hour)
}

// AddExpensiveHours returns a copy where hours are caution hours with a zero allowance.
func (h HourObject) AddExpensiveHours(hours []int) HourObject {
	ret := h.Clone()
	for _, hour := range hours {
		ret.NonHours = removeHour(ret.NonHours, hour)
		ret.CautionHours = insertHour(ret.CautionHours, hour)
		ret.DynamicCautionHours[hour] = 0
	}
	return ret
}

// RemoveCheapHours returns a copy where hours are non hours.
func (h HourObject) RemoveCheapHours(hours []int) HourObject {
	ret := h.Clone()
	for _, hour := range hours {
		ret.CautionHours = removeHour(ret.CautionHours, hour)
		delete(ret.DynamicCautionHours, hour)
		ret.NonHours = insertHour(ret.NonHours, hour)
	}
	return ret
}

// Validate checks that hours 0..n-1 are each in exactly one of non and caution hours
// and that every dynamic caution hour is a caution hour.
func (h HourObject) Validate(n int) error {
	seen := make(map[int]string, n)
	for _, hour := range h.NonHours {
		if _, ok := seen[hour]; ok {
			return fmt.Errorf("hour %d listed twice", hour)
		}
		seen[hour] = "non"
	}
	for _, hour := range h.CautionHours {
		if prev, ok := seen[hour]; ok {
			return fmt.Errorf("hour %d is both %s and caution", hour, prev)
		}
		seen[hour] = "caution"
	}
	for hour := range h.DynamicCautionHours {
		if seen[hour] != "caution" {
			return fmt.Errorf("dynamic caution hour %d is not a caution hour", hour)
		}
	}
	for hour := 0; hour < n; hour++ {
		if _, ok := seen[hour]; !ok {
			return fmt.Errorf("hour %d not classified", hour)
		}
	}
	if len(seen) != n {
		return fmt.Errorf("expected %d classified hours got %d", n, len(seen))
	}
	return nil
}

// Notification is sent to the publisher when hour lists change.
type Notification struct {
	Type     ListType   `json:"type"`
	Hour     int        `json:"hour"`
	Today    HourObject `json:"today"`
	Tomorrow HourObject `json:"tomorrow"`
}

func containsHour(hours []int, hour int) bool {
	i := sort.SearchInts(hours, hour)
	return i < len(hours) && hours[i] == hour
}

func insertHour(hours []int, hour int) []int {
	i := sort.SearchInts(hours, hour)
	if i < len(hours) && hours[i] == hour {
		return hours
	}
	hours = append(hours, 0)
	copy(hours[i+1:], hours[i:])
	hours[i] = hour
	return hours
}

func removeHour(hours []int, hour int) []int {
	i := sort.SearchInts(hours, hour)
	if i < len(hours) && hours[i] == hour {
		return append(hours[:i], hours[i+1:]...)
	}
	return hours
}

func cloneMap(m map[int]float64) map[int]float64 {
	ret := make(map[int]float64, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}
