package paginate

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/patrickmn/go-cache"
)

// Measurer reports the rendered height, in CSS pixels, of a markup fragment
// laid out at the given content width and font.
type Measurer interface {
	Measure(fragment string, width float64, font Font) (float64, error)
}

// MeasurerFunc adapts a function to the Measurer interface.
type MeasurerFunc func(fragment string, width float64, font Font) (float64, error)

// Measure calls f.
func (f MeasurerFunc) Measure(fragment string, width float64, font Font) (float64, error) {
	return f(fragment, width, font)
}

// CachedMeasurer memoizes another Measurer. Pagination measures every
// growing page buffer, and re-paginating with unchanged settings repeats
// the exact same measurements.
type CachedMeasurer struct {
	next  Measurer
	cache *cache.Cache
}

// NewCachedMeasurer wraps next with an unbounded, non-expiring cache.
func NewCachedMeasurer(next Measurer) *CachedMeasurer {
	return &CachedMeasurer{
		next:  next,
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Measure returns the cached height for the arguments, measuring on a miss.
// Errors are not cached.
func (c *CachedMeasurer) Measure(fragment string, width float64, font Font) (float64, error) {
	key := measureKey(fragment, width, font)
	if v, ok := c.cache.Get(key); ok {
		return v.(float64), nil
	}
	h, err := c.next.Measure(fragment, width, font)
	if err != nil {
		return 0, err
	}
	c.cache.Set(key, h, cache.NoExpiration)
	return h, nil
}

// Len returns the number of cached measurements.
func (c *CachedMeasurer) Len() int {
	return c.cache.ItemCount()
}

// Flush drops every cached measurement.
func (c *CachedMeasurer) Flush() {
	c.cache.Flush()
}

func measureKey(fragment string, width float64, font Font) string {
	sum := sha256.Sum256([]byte(fragment))
	return hex.EncodeToString(sum[:]) + "|" +
		strconv.FormatFloat(width, 'g', -1, 64) + "|" +
		strconv.FormatFloat(font.Size, 'g', -1, 64) + "|" +
		strconv.FormatFloat(font.LineHeight, 'g', -1, 64)
}
