package application

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerRunsOnlyLastTrigger(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var got atomic.Int32
	for i := 1; i <= 5; i++ {
		i := i
		d.Trigger("k", func() { got.Store(int32(i)) })
	}

	assert.Eventually(t, func() bool {
		return got.Load() == 5
	}, time.Second, 5*time.Millisecond)

	// No earlier trigger fires afterwards.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(5), got.Load())
}

func TestDebouncerIndependentKeys(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	var a, b atomic.Bool
	d.Trigger("a", func() { a.Store(true) })
	d.Trigger("b", func() { b.Store(true) })

	assert.Eventually(t, func() bool {
		return a.Load() && b.Load()
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var fired atomic.Bool
	d.Trigger("k", func() { fired.Store(true) })
	d.Cancel("k")

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestDebouncerZeroWindowRunsSynchronously(t *testing.T) {
	d := NewDebouncer(0)

	ran := false
	d.Trigger("k", func() { ran = true })
	assert.True(t, ran)
}
