package watch

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var fired int32
	for i := 0; i < 5; i++ {
		d.Schedule("key", func() { atomic.AddInt32(&fired, 1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	var fired int32
	d.Schedule("a", func() { atomic.AddInt32(&fired, 1) })
	d.Schedule("b", func() { atomic.AddInt32(&fired, 1) })
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 2 {
		t.Errorf("fired %d times, want 2", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var fired int32
	d.Schedule("key", func() { atomic.AddInt32(&fired, 1) })
	d.Cancel("key")
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("fired %d times after cancel", got)
	}
}

func TestDebouncerStopRejectsNewWork(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var fired int32
	d.Schedule("key", func() { atomic.AddInt32(&fired, 1) })
	d.Stop()
	d.Schedule("key", func() { atomic.AddInt32(&fired, 1) })
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("fired %d times after stop", got)
	}
}
