package clock_test

import (
	"testing"
	"time"

	"github.com/omochice/chat-session/internal/clock"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresDueTimers(t *testing.T) {
	c := clock.NewFake(epoch)
	var fired []string

	c.AfterFunc(3*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "c") })

	c.Advance(2999 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("fired = %v, want [a]", fired)
	}

	c.Advance(time.Millisecond)
	if len(fired) != 2 || fired[1] != "b" {
		t.Fatalf("fired = %v, want [a b]", fired)
	}

	if got := c.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}
	if got := c.Now(); !got.Equal(epoch.Add(3 * time.Second)) {
		t.Errorf("Now() = %v, want %v", got, epoch.Add(3*time.Second))
	}
}

func TestFake_Stop(t *testing.T) {
	c := clock.NewFake(epoch)
	fired := false

	timer := c.AfterFunc(time.Second, func() { fired = true })
	if !timer.Stop() {
		t.Error("Stop() = false, want true for a pending timer")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}

	c.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestFake_TimerScheduledFromCallback(t *testing.T) {
	c := clock.NewFake(epoch)
	count := 0

	var schedule func()
	schedule = func() {
		count++
		c.AfterFunc(time.Second, schedule)
	}
	c.AfterFunc(time.Second, schedule)

	c.Advance(5 * time.Second)
	if count != 5 {
		t.Errorf("callback ran %d times, want 5", count)
	}
}
