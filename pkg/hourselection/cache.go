package hourselection

import (
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

const defaultCacheSize = 16

// classificationCache memoizes classified days. A day is reclassified every hour with the same
// prices and policy, only the peak changes now and then.
type classificationCache struct {
	cache *lru.Cache
}

func newClassificationCache(size int) (*classificationCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &classificationCache{cache: c}, nil
}

func (c *classificationCache) classify(prices []float64, rangeStart, dayLength int, opts Options) (HourObject, error) {
	if c == nil {
		return classifyWindow(prices, rangeStart, dayLength, opts)
	}
	key := cacheKey(prices, rangeStart, dayLength, opts)
	if v, ok := c.cache.Get(key); ok {
		return v.(HourObject).Clone(), nil
	}
	obj, err := classifyWindow(prices, rangeStart, dayLength, opts)
	if err != nil {
		return obj, err
	}
	c.cache.Add(key, obj.Clone())
	return obj, nil
}

func (c *classificationCache) purge() {
	if c != nil {
		c.cache.Purge()
	}
}

func cacheKey(prices []float64, rangeStart, dayLength int, opts Options) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|%d|%d|%t|%g|%g|", rangeStart, dayLength, opts.CautionHourType, opts.BlockNocturnal, opts.CurrentPeak, opts.MinimumLoadKW)
	if opts.AdjustedAverage != nil {
		sb.WriteString(strconv.FormatFloat(*opts.AdjustedAverage, 'g', -1, 64))
	}
	sb.WriteByte('|')
	for _, p := range prices {
		sb.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
		sb.WriteByte(',')
	}
	return sb.String()
}
