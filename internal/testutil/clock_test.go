package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2021, 2, 19, 13, 0, 0, 0, time.UTC)

func TestStepClock_Sequence(t *testing.T) {
	c := NewStepClock(epoch, time.Second)

	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch.Add(time.Second), c.Now())
	assert.Equal(t, epoch.Add(2*time.Second), c.Now())
	assert.Equal(t, int64(3), c.Calls())
}

func TestStepClock_Reset(t *testing.T) {
	c := NewStepClock(epoch, time.Minute)
	c.Now()
	c.Now()

	c.Reset()

	assert.Equal(t, epoch, c.Now())
}

func TestStepClock_ZeroStep(t *testing.T) {
	c := NewStepClock(epoch, 0)

	assert.Equal(t, c.Now(), c.Now())
}

func TestStepClock_Concurrent(t *testing.T) {
	c := NewStepClock(epoch, time.Millisecond)

	var wg sync.WaitGroup
	seen := make(chan time.Time, 100)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Now()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, 100, "every call should observe a distinct time")
}
