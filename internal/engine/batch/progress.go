package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks how many items of a run have settled.
// It is safe for concurrent use by multiple lanes.
type Progress struct {
	totalItems     int
	succeededItems int
	failedItems    int
	startTime      time.Time
	lastUpdateTime time.Time

	mu sync.RWMutex
}

// NewProgress creates a new progress tracker for totalItems items.
func NewProgress(totalItems int) *Progress {
	now := time.Now()
	return &Progress{
		totalItems:     totalItems,
		startTime:      now,
		lastUpdateTime: now,
	}
}

// AddSucceeded records one successful item.
func (p *Progress) AddSucceeded() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.succeededItems++
	p.lastUpdateTime = time.Now()
}

// AddFailed records one failed item.
func (p *Progress) AddFailed() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failedItems++
	p.lastUpdateTime = time.Now()
}

// Snapshot returns a copy of the current progress state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		TotalItems:      p.totalItems,
		SucceededItems:  p.succeededItems,
		FailedItems:     p.failedItems,
		StartTime:       p.startTime,
		LastUpdateTime:  p.lastUpdateTime,
		PercentComplete: p.percentCompleteLocked(),
		ElapsedTime:     time.Since(p.startTime),
		ItemsPerSecond:  p.itemsPerSecondLocked(),
		Remaining:       p.remainingLocked(),
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems      int
	SucceededItems  int
	FailedItems     int
	StartTime       time.Time
	LastUpdateTime  time.Time
	PercentComplete float64
	ElapsedTime     time.Duration
	ItemsPerSecond  float64

	// Remaining estimates the time left from the average per settled item.
	// It is 0 before the first item settles and once every item has.
	Remaining time.Duration
}

// Settled returns the number of items that have finished.
func (s ProgressSnapshot) Settled() int {
	return s.SucceededItems + s.FailedItems
}

// Must be called with mu held.
func (p *Progress) settledLocked() int {
	return p.succeededItems + p.failedItems
}

// Must be called with mu held.
func (p *Progress) percentCompleteLocked() float64 {
	if p.totalItems == 0 {
		return 0
	}
	return (float64(p.settledLocked()) / float64(p.totalItems)) * percentMultiplier
}

// Must be called with mu held.
func (p *Progress) itemsPerSecondLocked() float64 {
	elapsed := time.Since(p.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(p.settledLocked()) / elapsed
}

// Must be called with mu held.
func (p *Progress) remainingLocked() time.Duration {
	settled := p.settledLocked()
	left := p.totalItems - settled
	if settled == 0 || left <= 0 {
		return 0
	}
	avgPerItem := time.Since(p.startTime) / time.Duration(settled)
	return avgPerItem * time.Duration(left)
}
