/*
refresher.go - Overdue flag materializer

PURPOSE:
  Periodically recomputes the installments table's materialized
  overdue_flag column so reporting queries can filter on an index. The
  flag is a query aid only: the effective status shown to callers is
  always derived fresh from persisted status, due date and today, which
  keeps clock-skew out of the source of truth.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Each run flags non-settled installments whose due date has passed
  - Records an audit row per run

CONFIGURATION:
  - CheckInterval: How often to refresh (default: 1 hour)
  - Enabled: Whether the refresher is active (default: true)

USAGE:
  refresher := NewOverdueRefresher(store)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - store/sqlite: RefreshOverdueFlags implementation
  - collections/status.go: The authoritative derivation
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/corredora/collections-engine/store/sqlite"
)

// OverdueRefresher keeps the materialized overdue_flag column current.
type OverdueRefresher struct {
	Store         *sqlite.Store
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewOverdueRefresher creates a refresher with the default interval.
func NewOverdueRefresher(store *sqlite.Store) *OverdueRefresher {
	return &OverdueRefresher{
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the background refresh loop and runs one refresh
// immediately.
func (or *OverdueRefresher) Start() {
	or.mu.Lock()
	defer or.mu.Unlock()

	if !or.Enabled {
		log.Println("[Refresher] Disabled, not starting")
		return
	}

	or.ticker = time.NewTicker(or.CheckInterval)
	or.wg.Add(1)
	go or.run()

	log.Printf("[Refresher] Started with check interval: %v", or.CheckInterval)
}

// Stop halts the refresh loop and waits for it to exit.
func (or *OverdueRefresher) Stop() {
	or.mu.Lock()
	defer or.mu.Unlock()

	if or.ticker == nil {
		return
	}
	or.ticker.Stop()
	close(or.stop)
	or.wg.Wait()
	or.ticker = nil

	log.Println("[Refresher] Stopped")
}

func (or *OverdueRefresher) run() {
	defer or.wg.Done()

	or.refreshOnce()
	for {
		select {
		case <-or.ticker.C:
			or.refreshOnce()
		case <-or.stop:
			return
		}
	}
}

func (or *OverdueRefresher) refreshOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	flagged, err := or.Store.RefreshOverdueFlags(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("[Refresher] Refresh failed: %v", err)
		return
	}
	log.Printf("[Refresher] Refreshed overdue flags: %d installments flagged", flagged)
}
