package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
)

// Collector periodically refreshes historical averages in the background
// so the insight engine's context gatherer never blocks on a live
// warehouse query.
type Collector struct {
	client          *Client
	refreshInterval int // days of lookback per query
	mu              sync.RWMutex
	cache           map[string]HistoricalAverages
	lastFetch       time.Time
	interval        time.Duration
	targets         []lookupTarget
}

type lookupTarget struct {
	shipperName string
	carrierCode string
	polCode     string
	podCode     string
}

// NewCollector creates a collector that refreshes every interval, querying
// 90 days of lookback history per stat.
func NewCollector(client *Client, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Collector{
		client:          client,
		refreshInterval: 90,
		interval:        interval,
		cache:           make(map[string]HistoricalAverages),
	}
}

// Track registers a shipper/carrier/route combination to keep refreshed.
// The insight context gatherer calls this on every gather; each call
// appends a target, and repeated registrations of the same combination
// are not collapsed. Lookups via Get are served from cache.
func (c *Collector) Track(shipperName, carrierCode, polCode, podCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets = append(c.targets, lookupTarget{shipperName, carrierCode, polCode, podCode})
}

// Start runs the refresh loop until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	c.fetchAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fetchAll(ctx)
		}
	}
}

// FetchNow triggers an immediate refresh of all tracked targets.
func (c *Collector) FetchNow(ctx context.Context) {
	c.fetchAll(ctx)
}

func (c *Collector) fetchAll(ctx context.Context) {
	c.mu.RLock()
	targets := append([]lookupTarget(nil), c.targets...)
	c.mu.RUnlock()

	for _, t := range targets {
		avg, err := c.fetchOne(ctx, t)
		if err != nil {
			logger.Warn("analytics: refresh failed", "shipper", t.shipperName, "carrier", t.carrierCode, "error", err.Error())
			continue
		}
		c.mu.Lock()
		c.cache[cacheKey(t)] = avg
		c.lastFetch = time.Now()
		c.mu.Unlock()
	}
	logger.Debug("analytics: refreshed historical averages", "targets", len(targets))
}

func (c *Collector) fetchOne(ctx context.Context, t lookupTarget) (HistoricalAverages, error) {
	var avg HistoricalAverages
	var err error

	if t.shipperName != "" {
		avg.Shipper, err = c.client.ShipperSIHistory(ctx, t.shipperName, c.refreshInterval)
		if err != nil {
			return avg, err
		}
	}
	if t.carrierCode != "" {
		avg.Carrier, err = c.client.CarrierRolloverRate(ctx, t.carrierCode, c.refreshInterval)
		if err != nil {
			return avg, err
		}
	}
	if t.polCode != "" && t.podCode != "" {
		avg.Route, err = c.client.RouteDelayAverage(ctx, t.polCode, t.podCode, c.refreshInterval)
		if err != nil {
			return avg, err
		}
	}
	return avg, nil
}

// Get returns the cached averages for a shipper/carrier/route combination,
// or false if nothing has been fetched for it yet.
func (c *Collector) Get(shipperName, carrierCode, polCode, podCode string) (HistoricalAverages, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	avg, ok := c.cache[cacheKey(lookupTarget{shipperName, carrierCode, polCode, podCode})]
	return avg, ok
}

// LastFetch returns the time of the last successful refresh.
func (c *Collector) LastFetch() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetch
}

func cacheKey(t lookupTarget) string {
	return t.shipperName + "|" + t.carrierCode + "|" + t.polCode + "|" + t.podCode
}
