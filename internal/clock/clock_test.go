package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystem(t *testing.T) {
	before := time.Now()
	now := System.Now()
	assert.False(t, now.Before(before))
}

func TestFake(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := NewFake(start)
	assert.Equal(t, start, f.Now())

	assert.Equal(t, start.Add(time.Minute), f.Advance(time.Minute))
	assert.Equal(t, start.Add(time.Minute), f.Now())

	f.Set(start)
	assert.Equal(t, start, f.Now())
}

func TestFake_Concurrent(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Advance(time.Second)
			_ = f.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Unix(100, 0), f.Now())
}
