package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockStartsAtZeroOrResumePoint(t *testing.T) {
	assert.Equal(t, int64(0), NewClock().Current())

	c := NewClockAt(41)
	assert.Equal(t, int64(42), c.Next(), "resumed clock continues after the last seq")
	assert.Equal(t, int64(42), c.Current())
}

func TestClockNextIsStrictlyIncreasing(t *testing.T) {
	c := NewClock()
	prev := int64(0)
	for i := 0; i < 100; i++ {
		seq := c.Next()
		assert.Greater(t, seq, prev)
		prev = seq
	}
}

func TestClockConcurrentAuditWriters(t *testing.T) {
	c := NewClock()
	const writers = 50
	const entriesPerWriter = 40

	var wg sync.WaitGroup
	seqs := make(chan int64, writers*entriesPerWriter)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < entriesPerWriter; j++ {
				seqs <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "seq %d issued twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, writers*entriesPerWriter)
}
