package meter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	c := &Cache{}
	assert.Nil(t, c.Get())
	c.Set(nil)
	assert.Nil(t, c.Get())

	now := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)
	c.Set(&Data{Id: "p1ib", Time: now, Current_W: 1200})
	c.Set(&Data{Id: "5", Time: now.Add(time.Minute), Current_W: 800})

	d := c.Get()
	assert.Equal(t, "5", d.Id)
	assert.Equal(t, 0.8, d.KW())
	assert.Len(t, c.Meters(), 2)

	_, fresh := c.Fresh(now.Add(10*time.Minute), 15*time.Minute)
	assert.True(t, fresh)
	_, fresh = c.Fresh(now.Add(time.Hour), 15*time.Minute)
	assert.False(t, fresh)

	// returned data is a copy
	d.Current_W = 0
	assert.Equal(t, 800.0, c.Get().Current_W)
}
