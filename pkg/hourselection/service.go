package hourselection

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// PriceSource supplies hourly prices in local time. Tomorrow is empty until published.
type PriceSource interface {
	PricesToday() []float64
	PricesTomorrow() []float64
}

type OptionsProvider interface {
	Options() Options
}

// Publisher receives published hour objects and hour list notifications.
type Publisher interface {
	Publish(today, tomorrow HourObject)
	Notify(n Notification)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithCacheSize sets the number of classified days to memoize. 0 disables the cache.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		s.cacheSize = size
	}
}

// WithFailureHandler registers a callback invoked for every day that failed classification.
func WithFailureHandler(fn func(day string, err error)) Option {
	return func(s *Service) {
		s.onFailure = fn
	}
}

// Service owns the hour classification of today and tomorrow. It is not safe for concurrent
// use, callers serialize Update and must not read hours while an update runs.
type Service struct {
	prices    PriceSource
	options   OptionsProvider
	publisher Publisher
	clock     Clock
	onFailure func(day string, err error)

	cacheSize int
	cache     *classificationCache

	mockHour        *int
	preserveInterim bool

	today    HourObject
	tomorrow HourObject
}

func New(prices PriceSource, options OptionsProvider, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		prices:    prices,
		options:   options,
		publisher: publisher,
		clock:     systemClock{},
		cacheSize: defaultCacheSize,
		today:     NewHourObject(),
		tomorrow:  NewHourObject(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.cacheSize > 0 {
		c, err := newClassificationCache(s.cacheSize)
		if err != nil {
			logrus.Errorf("hourselection: classification cache disabled: %s", err)
		}
		s.cache = c
	}
	return s
}

// Restore sets previously published hour objects, for example after a restart.
func (s *Service) Restore(today, tomorrow HourObject) {
	s.today = today.Clone()
	s.tomorrow = tomorrow.Clone()
}

func (s *Service) HoursToday() HourObject {
	return s.today.Clone()
}

func (s *Service) HoursTomorrow() HourObject {
	return s.tomorrow.Clone()
}

func (s *Service) SetPreserveInterim(b bool) {
	s.preserveInterim = b
}

func (s *Service) PreserveInterim() bool {
	return s.preserveInterim
}

func (s *Service) SetMockHour(hour int) {
	s.mockHour = &hour
}

func (s *Service) ClearMockHour() {
	s.mockHour = nil
}

func (s *Service) CurrentHour() int {
	if s.mockHour != nil {
		return *s.mockHour
	}
	return s.clock.Now().Hour()
}

// CurrentAllowance returns the share of the load allowed in the current hour.
func (s *Service) CurrentAllowance() (float64, bool) {
	hour := s.CurrentHour()
	if s.today.IsCaution(hour) {
		return s.today.DynamicCautionHours[hour], true
	}
	return 1, false
}

// Update recomputes and publishes today and tomorrow. A day that fails classification keeps its
// previously published hours. Only invalid options are returned as an error.
func (s *Service) Update(caller string) error {
	opts := s.options.Options()
	if err := opts.Validate(); err != nil {
		return err
	}

	logger := logrus.WithField("caller", caller)
	if s.preserveInterim && caller == CallerToday {
		logger.Debug("hourselection: rollover, tomorrow becomes today")
		s.today = s.tomorrow
		s.tomorrow = NewHourObject()
		s.preserveInterim = false
		s.publish()
		return nil
	}

	pricesToday := s.prices.PricesToday()
	pricesTomorrow := s.prices.PricesTomorrow()

	today, errToday := s.classifyDay(pricesToday, opts)
	if errToday != nil {
		s.failed(CallerToday, errToday)
		today = s.today
	}
	tomorrow, errTomorrow := s.classifyDay(pricesTomorrow, opts)
	if errTomorrow != nil {
		s.failed(CallerTomorrow, errTomorrow)
		tomorrow = s.tomorrow
	}

	if errToday == nil && errTomorrow == nil {
		var smoothed bool
		today, tomorrow, smoothed = InterimDayUpdate(today, tomorrow, pricesToday, pricesTomorrow, opts)
		s.preserveInterim = smoothed
	}

	if errToday == nil {
		today = ApplyPriceLimits(today, opts)
	}
	if errTomorrow == nil {
		tomorrow = ApplyPriceLimits(tomorrow, opts)
	}

	s.today = today
	s.tomorrow = tomorrow
	logger.WithFields(logrus.Fields{
		"nonHours":     s.today.NonHours,
		"cautionHours": s.today.CautionHours,
		"interim":      s.preserveInterim,
	}).Debug("hourselection: updated")
	s.publish()
	return nil
}

// UpdateHourLists notifies the publisher about the current hour lists.
func (s *Service) UpdateHourLists(listType ListType) {
	if s.publisher == nil {
		return
	}
	s.publisher.Notify(Notification{
		Type:     listType,
		Hour:     s.CurrentHour(),
		Today:    s.today.Clone(),
		Tomorrow: s.tomorrow.Clone(),
	})
}

// Invalidate drops memoized classifications.
func (s *Service) Invalidate() {
	s.cache.purge()
}

func (s *Service) classifyDay(prices []float64, opts Options) (HourObject, error) {
	if len(prices) == 0 {
		return NewHourObject(), nil
	}
	obj, err := s.cache.classify(prices, 0, len(prices), opts)
	if err != nil {
		return obj, fmt.Errorf("classifying %d prices: %w", len(prices), err)
	}
	return obj, nil
}

func (s *Service) failed(day string, err error) {
	logrus.WithFields(logrus.Fields{"day": day, "error": err}).Error("hourselection: classification failed, keeping previous hours")
	if s.onFailure != nil {
		s.onFailure(day, err)
	}
}

func (s *Service) publish() {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(s.today.Clone(), s.tomorrow.Clone())
	s.UpdateHourLists(ListAll)
}
