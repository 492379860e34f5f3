package cache

import (
	"sync"
	"time"
)

// Purger is anything the janitor can sweep.
type Purger interface {
	PurgeExpired() int
}

// Janitor periodically sweeps expired entries out of the caches it
// tracks, so advice for idle users does not sit in memory until their
// key happens to be touched again.
type Janitor struct {
	interval time.Duration
	purgers  []Purger

	started bool
	once    sync.Once
	stop    chan struct{}
	done    chan struct{}
}

func NewJanitor(interval time.Duration) *Janitor {
	return &Janitor{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Track registers a cache for sweeping. Not safe to call after Start.
func (j *Janitor) Track(p Purger) {
	j.purgers = append(j.purgers, p)
}

// Start launches the background sweep loop.
func (j *Janitor) Start() {
	j.started = true
	go func() {
		defer close(j.done)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, p := range j.purgers {
					p.PurgeExpired()
				}
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit. Safe to call more
// than once, and a no-op for a janitor that never started.
func (j *Janitor) Stop() {
	j.once.Do(func() { close(j.stop) })
	if j.started {
		<-j.done
	}
}
