package meter

import (
	"sync"
	"time"
)

// PeakTracker keeps the highest hourly mean load of the current month in kW.
type PeakTracker struct {
	hour  time.Time
	sum   float64
	count int

	year  int
	month time.Month
	peak  float64

	mutex sync.Mutex
}

func NewPeakTracker() *PeakTracker {
	return &PeakTracker{}
}

// Add records a meter reading and returns the current peak. Readings without a time are ignored.
func (p *PeakTracker) Add(d Data) float64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if d.Time.IsZero() {
		return p.current()
	}

	hour := d.Time.Truncate(time.Hour)
	if !hour.Equal(p.hour) {
		p.closeHour()
		p.hour = hour
	}
	if y, m, _ := hour.Date(); y != p.year || m != p.month {
		p.year, p.month = y, m
		p.peak = 0
	}
	p.sum += d.Current_W
	p.count++
	return p.current()
}

// Peak returns the highest hourly mean of the month including the running hour.
func (p *PeakTracker) Peak() float64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.current()
}

func (p *PeakTracker) closeHour() {
	if p.count > 0 {
		if mean := p.mean(); mean > p.peak {
			p.peak = mean
		}
	}
	p.sum = 0
	p.count = 0
}

func (p *PeakTracker) current() float64 {
	if mean := p.mean(); mean > p.peak {
		return mean
	}
	return p.peak
}

func (p *PeakTracker) mean() float64 {
	if p.count == 0 {
		return 0
	}
	return p.sum / float64(p.count) / 1000
}
