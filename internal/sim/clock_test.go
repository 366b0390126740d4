package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_StepFiresLayers(t *testing.T) {
	c := NewClock()

	var ticks, hours, days int
	c.OnTick = func(uint64) { ticks++ }
	c.OnHour = func(uint64) { hours++ }
	c.OnDay = func(uint64) { days++ }

	for i := 0; i < TicksPerDay; i++ {
		c.Step()
	}

	assert.Equal(t, TicksPerDay, ticks)
	assert.Equal(t, 24, hours)
	assert.Equal(t, 1, days)
	assert.Equal(t, uint64(TicksPerDay), c.Tick())
}

func TestClock_SetTickResumes(t *testing.T) {
	c := NewClock()
	c.SetTick(500)

	var fired uint64
	c.OnTick = func(tick uint64) { fired = tick }
	c.Step()

	assert.Equal(t, uint64(501), fired)
}

func TestClock_SpeedClamps(t *testing.T) {
	c := NewClock()
	assert.Equal(t, 1.0, c.Speed())

	c.SetSpeed(-5)
	assert.Equal(t, 0.0, c.Speed())

	c.SetSpeed(8)
	assert.Equal(t, 8.0, c.Speed())
}

func TestClock_RunStop(t *testing.T) {
	c := NewClock()
	c.Interval = time.Millisecond

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	assert.Eventually(t, func() bool { return c.Tick() >= 3 },
		2*time.Second, time.Millisecond)
	assert.True(t, c.Running())

	c.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("clock did not stop")
	}
	assert.False(t, c.Running())
}

func TestSimTime(t *testing.T) {
	cases := []struct {
		tick uint64
		want string
	}{
		{0, "Day 1, 0:00"},
		{1, "Day 1, 0:01"},
		{90, "Day 1, 1:30"},
		{1439, "Day 1, 23:59"},
		{1440, "Day 2, 0:00"},
		{1505, "Day 2, 1:05"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SimTime(tc.tick), "tick %d", tc.tick)
	}
}
