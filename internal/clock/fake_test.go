package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	fc := NewFake(start)

	var fired []string
	fc.AfterFunc(20*time.Second, func() { fired = append(fired, "b") })
	fc.AfterFunc(10*time.Second, func() { fired = append(fired, "a") })
	fc.AfterFunc(time.Minute, func() { fired = append(fired, "c") })

	fc.Advance(30 * time.Second)

	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, start.Add(30*time.Second), fc.Now())
	assert.Equal(t, 1, fc.Pending())
}

func TestFake_StopPreventsFiring(t *testing.T) {
	fc := NewFake(time.Unix(0, 0))

	called := false
	timer := fc.AfterFunc(time.Second, func() { called = true })

	require.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second Stop reports already stopped")

	fc.Advance(time.Hour)
	assert.False(t, called)
	assert.Equal(t, 0, fc.Pending())
}

func TestFake_TimerCanRescheduleItself(t *testing.T) {
	fc := NewFake(time.Unix(0, 0))

	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			fc.AfterFunc(time.Second, tick)
		}
	}
	fc.AfterFunc(time.Second, tick)

	fc.Advance(10 * time.Second)
	assert.Equal(t, 3, count)
}

func TestFake_SetDoesNotFire(t *testing.T) {
	start := time.Unix(0, 0)
	fc := NewFake(start)

	called := false
	fc.AfterFunc(time.Second, func() { called = true })

	fc.Set(start.Add(time.Hour))
	assert.False(t, called)
	assert.Equal(t, 1, fc.Pending())
}

func TestReal_Now(t *testing.T) {
	c := New()
	before := time.Now()
	now := c.Now()
	assert.False(t, now.Before(before))
}
