package meter

import (
	"sync"
	"time"
)

// Cache keeps the latest reading from each meter.
type Cache struct {
	data   map[string]Data
	latest *Data
	sync.RWMutex
}

// Get returns the most recent reading from any meter.
func (c *Cache) Get() *Data {
	c.RLock()
	defer c.RUnlock()
	if c.latest == nil {
		return nil
	}
	d := *c.latest
	return &d
}

// Fresh returns the most recent reading if it is younger than maxAge at now.
func (c *Cache) Fresh(now time.Time, maxAge time.Duration) (*Data, bool) {
	d := c.Get()
	if d == nil || now.Sub(d.Time) > maxAge {
		return d, false
	}
	return d, true
}

func (c *Cache) Set(d *Data) {
	if d == nil {
		return
	}
	c.Lock()
	if c.data == nil {
		c.data = make(map[string]Data)
	}
	c.data[d.Id] = *d
	cp := *d
	c.latest = &cp
	c.Unlock()
}

// Meters returns the latest reading per meter id.
func (c *Cache) Meters() map[string]Data {
	c.RLock()
	defer c.RUnlock()
	ret := make(map[string]Data, len(c.data))
	for k, v := range c.data {
		ret[k] = v
	}
	return ret
}
