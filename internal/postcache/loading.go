package postcache

import (
	"sync"
	"time"
)

// DefaultMinLoading is how long the loading flag stays up after a fetch
// starts, even when the fetch returns sooner.
const DefaultMinLoading = 800 * time.Millisecond

// loadingTracker counts in-flight fetches. Each fetch holds the flag for
// at least min after it started.
type loadingTracker struct {
	mu    sync.Mutex
	count int
	min   time.Duration
}

// begin marks a fetch as started and returns the func that settles it.
func (l *loadingTracker) begin() (done func()) {
	l.mu.Lock()
	l.count++
	l.mu.Unlock()

	start := time.Now()
	var once sync.Once
	return func() {
		once.Do(func() {
			remaining := l.min - time.Since(start)
			if remaining <= 0 {
				l.release()
				return
			}
			time.AfterFunc(remaining, l.release)
		})
	}
}

func (l *loadingTracker) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count > 0 {
		l.count--
	}
}

func (l *loadingTracker) active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count > 0
}
