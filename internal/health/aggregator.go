package health

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Flusher persists accumulated call counts for a service.
type Flusher interface {
	UpdateAPIHealthBulk(serviceName string, totalToAdd, successfulToAdd uint64) error
}

// Aggregator holds API health stats in memory to reduce database writes.
type Aggregator struct {
	repo               Flusher
	serviceName        string
	totalRequests      atomic.Uint64
	successfulRequests atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
}

func NewAggregator(repo Flusher, serviceName string) *Aggregator {
	return &Aggregator{
		repo:        repo,
		serviceName: serviceName,
		stop:        make(chan struct{}),
	}
}

// RecordCall increments the in-memory counters for an API call.
func (a *Aggregator) RecordCall(success bool) {
	a.totalRequests.Add(1)
	if success {
		a.successfulRequests.Add(1)
	}
}

// FlushToDB writes the aggregated counts to the database and resets the counters.
func (a *Aggregator) FlushToDB() {
	total := a.totalRequests.Swap(0)
	successful := a.successfulRequests.Swap(0)

	if total == 0 {
		return
	}

	if err := a.repo.UpdateAPIHealthBulk(a.serviceName, total, successful); err != nil {
		log.Printf("[HEALTH] Failed to flush API health stats for service %s: %v", a.serviceName, err)
	}
}

// Start periodically flushes stats to the database until Stop is called.
func (a *Aggregator) Start(interval time.Duration) {
	log.Printf("[HEALTH] Aggregator for '%s' started with a %s flush interval", a.serviceName, interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.FlushToDB()
			case <-a.stop:
				a.FlushToDB()
				return
			}
		}
	}()
}

// Stop ends the flush loop after a final flush.
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}
