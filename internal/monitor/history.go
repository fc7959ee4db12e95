package monitor

import (
	"time"

	"github.com/couchcryptid/station-monitor/internal/cache"
	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/observability"
)

const defaultHistoryCacheSize = 256

type historyKey struct {
	stationID string
	days      int
}

// historyCache memoizes generated series per (station, days). Values are
// shared between callers and must be treated as read-only.
type historyCache struct {
	lru     *cache.LRU[historyKey, []domain.HistoricalRecord]
	metrics *observability.Metrics
}

func newHistoryCache(size int, metrics *observability.Metrics) *historyCache {
	if size <= 0 {
		size = defaultHistoryCacheSize
	}
	return &historyCache{
		lru:     cache.New[historyKey, []domain.HistoricalRecord](size),
		metrics: metrics,
	}
}

func (c *historyCache) get(stationID string, days int, now time.Time) []domain.HistoricalRecord {
	records, hit := c.lru.GetOrAdd(historyKey{stationID, days}, func() []domain.HistoricalRecord {
		return domain.GenerateHistory(stationID, days, now)
	})
	if hit {
		c.metrics.HistoryCache.WithLabelValues("hit").Inc()
	} else {
		c.metrics.HistoryCache.WithLabelValues("miss").Inc()
	}
	return records
}

func (c *historyCache) purge() int {
	return c.lru.Purge()
}
