package hourselection

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrices struct {
	today    []float64
	tomorrow []float64
}

func (f *fakePrices) PricesToday() []float64    { return f.today }
func (f *fakePrices) PricesTomorrow() []float64 { return f.tomorrow }

type fakeOptions struct {
	opts Options
}

func (f *fakeOptions) Options() Options { return f.opts }

type recordingPublisher struct {
	published     []HourObject
	notifications []Notification
}

func (r *recordingPublisher) Publish(today, tomorrow HourObject) {
	r.published = append(r.published, today, tomorrow)
}

func (r *recordingPublisher) Notify(n Notification) {
	r.notifications = append(r.notifications, n)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func float(f float64) *float64 {
	return &f
}

func newTestService(prices *fakePrices, opts Options, opt ...Option) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	return New(prices, &fakeOptions{opts: opts}, pub, opt...), pub
}

func TestUpdateEveningSpike(t *testing.T) {
	s, pub := newTestService(&fakePrices{today: eveningSpike()}, Options{})

	err := s.Update(CallerToday)
	require.NoError(t, err)

	today := s.HoursToday()
	assert.Equal(t, []int{17, 18, 19}, today.CautionHours)
	assert.Equal(t, map[int]float64{17: 0.33, 18: 0.17, 19: 0}, today.DynamicCautionHours)
	assert.True(t, s.HoursTomorrow().IsEmpty())
	assert.False(t, s.PreserveInterim())

	require.Len(t, pub.published, 2)
	assert.Equal(t, today, pub.published[0])
	require.Len(t, pub.notifications, 1)
	assert.Equal(t, ListAll, pub.notifications[0].Type)
}

func TestUpdateFlatCurve(t *testing.T) {
	s, _ := newTestService(&fakePrices{today: constant(24, 0.42)}, Options{CautionHourType: CautionScrooge, BlockNocturnal: true})
	require.NoError(t, s.Update(CallerHour))

	today := s.HoursToday()
	assert.Len(t, today.NonHours, 24)
	assert.Empty(t, today.CautionHours)
}

func TestUpdateAppliesPriceLimits(t *testing.T) {
	s, _ := newTestService(&fakePrices{today: eveningSpike()}, Options{
		AbsoluteTopPrice: float(55),
		MinPrice:         float(65),
	})
	require.NoError(t, s.Update(CallerHour))

	today := s.HoursToday()
	assert.Equal(t, []int{19}, today.CautionHours)
	assert.Equal(t, map[int]float64{19: 0}, today.DynamicCautionHours)
	assert.NoError(t, today.Validate(24))
}

func TestUpdateAbsoluteTopPriceOnFlatCurve(t *testing.T) {
	s, _ := newTestService(&fakePrices{today: constant(24, 150)}, Options{AbsoluteTopPrice: float(100)})
	require.NoError(t, s.Update(CallerHour))

	today := s.HoursToday()
	assert.Len(t, today.CautionHours, 24)
	assert.Empty(t, today.NonHours)
	for hour := 0; hour < 24; hour++ {
		assert.Equal(t, 0.0, today.DynamicCautionHours[hour])
	}
}

func interimPrices() *fakePrices {
	tomorrow := append(constant(14, 20), constant(10, 100)...)
	return &fakePrices{today: constant(24, 10), tomorrow: tomorrow}
}

func TestUpdateInterimDayBoundary(t *testing.T) {
	s, _ := newTestService(interimPrices(), Options{})
	require.NoError(t, s.Update(CallerTomorrow))

	assert.True(t, s.PreserveInterim())
	today := s.HoursToday()
	tomorrow := s.HoursTomorrow()
	require.NoError(t, today.Validate(24))
	require.NoError(t, tomorrow.Validate(24))

	for hour := 14; hour < 24; hour++ {
		assert.True(t, today.IsNon(hour), "today hour %d", hour)
	}
	for hour := 0; hour < 24; hour++ {
		assert.True(t, tomorrow.IsCaution(hour), "tomorrow hour %d", hour)
	}
	assert.Equal(t, 0.0, tomorrow.DynamicCautionHours[0])
	assert.Contains(t, tomorrow.OffsetDict, 0)
}

func TestUpdateInterimNeedsTomorrow(t *testing.T) {
	prices := interimPrices()
	prices.tomorrow = prices.tomorrow[:22]
	s, _ := newTestService(prices, Options{})
	require.NoError(t, s.Update(CallerTomorrow))

	assert.False(t, s.PreserveInterim())
	// without smoothing tomorrow's cheap morning stays non
	tomorrow := s.HoursTomorrow()
	for hour := 0; hour < 14; hour++ {
		assert.True(t, tomorrow.IsNon(hour), "tomorrow hour %d", hour)
	}
}

func TestUpdateRollover(t *testing.T) {
	s, pub := newTestService(interimPrices(), Options{})
	require.NoError(t, s.Update(CallerTomorrow))
	require.True(t, s.PreserveInterim())
	tomorrow := s.HoursTomorrow()

	require.NoError(t, s.Update(CallerToday))
	assert.Equal(t, tomorrow, s.HoursToday())
	assert.True(t, s.HoursTomorrow().IsEmpty())
	assert.False(t, s.PreserveInterim())
	assert.Len(t, pub.published, 4)
}

func TestUpdateInvalidOptions(t *testing.T) {
	s, pub := newTestService(&fakePrices{today: eveningSpike()}, Options{CautionHourType: CautionType(99)})

	err := s.Update(CallerHour)
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Empty(t, pub.published)
	assert.Empty(t, pub.notifications)

	s, _ = newTestService(&fakePrices{today: eveningSpike()}, Options{CurrentPeak: -1})
	assert.ErrorIs(t, s.Update(CallerHour), ErrInvalidOptions)
}

func TestUpdateKeepsPreviousOnFailure(t *testing.T) {
	prices := &fakePrices{today: eveningSpike(), tomorrow: eveningSpike()}
	var failedDays []string
	s, pub := newTestService(prices, Options{}, WithFailureHandler(func(day string, err error) {
		assert.ErrorIs(t, err, ErrMalformedEntry)
		failedDays = append(failedDays, day)
	}))
	require.NoError(t, s.Update(CallerHour))
	previous := s.HoursToday()

	broken := eveningSpike()
	broken[5] = math.NaN()
	prices.today = broken
	prices.tomorrow = constant(24, 1)

	require.NoError(t, s.Update(CallerHour))
	assert.Equal(t, []string{CallerToday}, failedDays)
	assert.Equal(t, previous, s.HoursToday())
	assert.Len(t, s.HoursTomorrow().NonHours, 24)
	assert.Len(t, pub.published, 4)
}

func TestCurrentAllowance(t *testing.T) {
	clock := fixedClock(time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC))
	s, _ := newTestService(&fakePrices{today: eveningSpike()}, Options{}, WithClock(clock))
	require.NoError(t, s.Update(CallerHour))

	assert.Equal(t, 18, s.CurrentHour())
	allowance, caution := s.CurrentAllowance()
	assert.True(t, caution)
	assert.Equal(t, 0.17, allowance)

	s.SetMockHour(3)
	allowance, caution = s.CurrentAllowance()
	assert.False(t, caution)
	assert.Equal(t, 1.0, allowance)

	s.ClearMockHour()
	assert.Equal(t, 18, s.CurrentHour())
}

func TestUpdateHourLists(t *testing.T) {
	s, pub := newTestService(&fakePrices{today: eveningSpike()}, Options{})
	require.NoError(t, s.Update(CallerHour))
	s.SetMockHour(17)

	s.UpdateHourLists(ListCautionHours)
	require.Len(t, pub.notifications, 2)
	n := pub.notifications[1]
	assert.Equal(t, ListCautionHours, n.Type)
	assert.Equal(t, 17, n.Hour)
	assert.Equal(t, []int{17, 18, 19}, n.Today.CautionHours)

	// notifications carry copies
	n.Today.CautionHours[0] = 3
	assert.Equal(t, []int{17, 18, 19}, s.HoursToday().CautionHours)

	New(&fakePrices{}, &fakeOptions{}, nil).UpdateHourLists(ListAll)
}

func TestRestore(t *testing.T) {
	s, _ := newTestService(&fakePrices{}, Options{})
	today := NewHourObject().AddExpensiveHours([]int{1, 2})
	s.Restore(today, NewHourObject())
	assert.Equal(t, []int{1, 2}, s.HoursToday().CautionHours)

	// empty prices publish empty days
	require.NoError(t, s.Update(CallerHour))
	assert.True(t, s.HoursToday().IsEmpty())
}

func TestUpdateCachedClassification(t *testing.T) {
	prices := &fakePrices{today: eveningSpike()}
	cached, _ := newTestService(prices, Options{})
	uncached, _ := newTestService(prices, Options{}, WithCacheSize(0))
	for i := 0; i < 3; i++ {
		require.NoError(t, cached.Update(CallerHour))
		require.NoError(t, uncached.Update(CallerHour))
		assert.Equal(t, uncached.HoursToday(), cached.HoursToday())
	}
	cached.Invalidate()
	uncached.Invalidate()
	require.NoError(t, cached.Update(CallerHour))
	assert.Equal(t, uncached.HoursToday(), cached.HoursToday())
}
