package store

import (
	"path/filepath"
	"testing"

	"github.com/nergy-se/hourcontroller/pkg/api/v1/config"
	"github.com/nergy-se/hourcontroller/pkg/hourselection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestPrices(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPrices("2025-09-30")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SavePrices(config.Prices{Date: "2025-09-30", Today: []float64{1.5, 2.25}})
	require.NoError(t, err)

	p, err := s.GetPrices("2025-09-30")
	require.NoError(t, err)
	assert.Equal(t, "2025-09-30", p.Date)
	assert.Equal(t, []float64{1.5, 2.25}, p.Today)
	assert.Empty(t, p.Tomorrow)

	err = s.SavePrices(config.Prices{Date: "2025-09-30", Today: []float64{1.5, 2.25}, Tomorrow: []float64{3}})
	require.NoError(t, err)
	p, err = s.GetPrices("2025-09-30")
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, p.Tomorrow)

	require.NoError(t, s.PrunePrices("2025-10-01"))
	_, err = s.GetPrices("2025-09-30")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHours(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadHours()
	assert.ErrorIs(t, err, ErrNotFound)

	today := hourselection.NewHourObject().AddExpensiveHours([]int{17, 18})
	today.NonHours = []int{0, 1, 2}
	today.PriceDict[17] = 1.25
	err = s.SaveHours(Hours{Date: "2025-09-30", Today: today, Tomorrow: hourselection.NewHourObject(), PreserveInterim: true})
	require.NoError(t, err)

	h, err := s.LoadHours()
	require.NoError(t, err)
	assert.Equal(t, "2025-09-30", h.Date)
	assert.Equal(t, today, h.Today)
	assert.True(t, h.Tomorrow.IsEmpty())
	assert.True(t, h.PreserveInterim)
	assert.False(t, h.UpdatedAt.IsZero())

	err = s.SaveHours(Hours{Date: "2025-10-01", Today: hourselection.NewHourObject(), Tomorrow: hourselection.NewHourObject()})
	require.NoError(t, err)
	h, err = s.LoadHours()
	require.NoError(t, err)
	assert.Equal(t, "2025-10-01", h.Date)
	assert.False(t, h.PreserveInterim)
}
