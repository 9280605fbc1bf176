package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveAlarms(t *testing.T) {
	a := &ActiveAlarms{}
	assert.Empty(t, a.List())
	assert.False(t, a.Clear())

	assert.True(t, a.Add("today failed"))
	assert.False(t, a.Add("today failed"))
	assert.True(t, a.Add("tomorrow failed"))
	assert.Equal(t, []string{"today failed", "tomorrow failed"}, a.List())

	assert.True(t, a.Remove("today failed"))
	assert.False(t, a.Remove("today failed"))
	assert.Equal(t, []string{"tomorrow failed"}, a.List())

	added := a.Set([]string{"tomorrow failed", "relay fault"})
	assert.Equal(t, []string{"relay fault"}, added)
	assert.Len(t, a.List(), 2)

	assert.True(t, a.Clear())
	assert.Empty(t, a.List())
}
