// internal/chain/clock.go
package chain

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Clock supplies the current block height. Heights never decrease.
type Clock interface {
	Height() uint64
}

var ErrHeightRegression = errors.New("block height cannot decrease")

// Manual is a Clock advanced explicitly, used for replays and tests.
type Manual struct {
	mu     sync.RWMutex
	height uint64
}

func NewManual(start uint64) *Manual {
	return &Manual{height: start}
}

func (m *Manual) Height() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.height
}

// Set moves the clock to height. Moving backwards is rejected.
func (m *Manual) Set(height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if height < m.height {
		return fmt.Errorf("%w: %d < %d", ErrHeightRegression, height, m.height)
	}
	m.height = height
	return nil
}

func (m *Manual) Advance(blocks uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.height += blocks
	return m.height
}

// Interval derives the height from the time elapsed since genesis, one block
// per interval. It belongs to the execution environment, not to the contract.
type Interval struct {
	genesis  time.Time
	interval time.Duration
	now      func() time.Time
}

func NewInterval(genesis time.Time, interval time.Duration) (*Interval, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("block interval must be positive, got %s", interval)
	}
	return &Interval{genesis: genesis, interval: interval, now: time.Now}, nil
}

func (c *Interval) Height() uint64 {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / c.interval)
}
