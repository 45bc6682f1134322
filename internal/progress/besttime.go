package progress

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/conorfennell/studydeck/internal/domain"
)

const bestTimeKey = "match:best_time"

// BestTime keeps the fastest Match round, in seconds.
type BestTime struct {
	kv KV
}

// NewBestTime returns a best-time store over kv.
func NewBestTime(kv KV) *BestTime {
	return &BestTime{kv: kv}
}

// Load returns the stored record. An unparsable value reads as absent.
func (b *BestTime) Load() (time.Duration, bool, error) {
	raw, ok, err := b.kv.Get(bestTimeKey)
	if err != nil || !ok {
		return 0, false, err
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, false, fmt.Errorf("%w: bad best time %q", domain.ErrStorage, raw)
	}
	return time.Duration(seconds * float64(time.Second)), true, nil
}

// Offer persists elapsed if it is strictly faster than the stored record.
// It reports whether the record improved.
func (b *BestTime) Offer(elapsed time.Duration) (bool, error) {
	if elapsed <= 0 {
		return false, nil
	}
	best, ok, _ := b.Load()
	if ok && elapsed >= best {
		return false, nil
	}
	value := strconv.FormatFloat(elapsed.Seconds(), 'f', -1, 64)
	if err := b.kv.Put(bestTimeKey, value); err != nil {
		return false, err
	}
	return true, nil
}
