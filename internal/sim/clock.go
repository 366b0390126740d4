// Package sim drives the pack world forward on a tick-based clock.
// One tick is one sim-minute.
package sim

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TickSchedule defines when each layer runs relative to the tick counter.
const (
	TicksPerHour = 60   // 60 ticks = 1 sim-hour
	TicksPerDay  = 1440 // 24 hours × 60
)

// Clock advances the simulation. Callbacks run on the clock goroutine;
// tick, speed, and running state are safe to read from other goroutines.
type Clock struct {
	Interval time.Duration // Base tick interval (default 1 second)

	// Callbacks for each tick layer — populated during setup.
	OnTick func(tick uint64) // Every tick (sim-minute)
	OnHour func(tick uint64) // Every 60 ticks
	OnDay  func(tick uint64) // Every 1440 ticks

	tick    atomic.Uint64
	running atomic.Bool

	mu    sync.Mutex
	speed float64 // Multiplier: 1.0 = real-time, 0 = paused
}

// NewClock creates a clock with default settings.
func NewClock() *Clock {
	return &Clock{
		Interval: time.Second,
		speed:    1.0,
	}
}

// Tick returns the current tick counter.
func (c *Clock) Tick() uint64 { return c.tick.Load() }

// SetTick positions the counter, used when resuming a saved world.
func (c *Clock) SetTick(t uint64) { c.tick.Store(t) }

// Running reports whether the loop is active.
func (c *Clock) Running() bool { return c.running.Load() }

// Speed returns the current speed multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// SetSpeed changes the speed multiplier. Zero pauses the clock.
func (c *Clock) SetSpeed(v float64) {
	if v < 0 {
		v = 0
	}
	c.mu.Lock()
	c.speed = v
	c.mu.Unlock()
}

// Run starts the tick loop. Blocks until Stop is called.
func (c *Clock) Run() {
	c.running.Store(true)
	slog.Info("clock started", "tick", c.Tick(), "speed", c.Speed())

	for c.running.Load() {
		speed := c.Speed()
		if speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		c.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(c.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("clock stopped", "tick", c.Tick())
}

// Stop halts the tick loop.
func (c *Clock) Stop() {
	c.running.Store(false)
}

// Step advances the clock by one tick and fires due callbacks.
func (c *Clock) Step() {
	tick := c.tick.Add(1)

	if c.OnTick != nil {
		c.OnTick(tick)
	}
	if tick%TicksPerHour == 0 && c.OnHour != nil {
		c.OnHour(tick)
	}
	if tick%TicksPerDay == 0 && c.OnDay != nil {
		c.OnDay(tick)
	}
}

// SimTime renders a tick number as a readable sim timestamp.
func SimTime(tick uint64) string {
	minutes := tick % 60
	totalHours := tick / 60
	hours := totalHours % 24
	days := totalHours/24 + 1
	return fmt.Sprintf("Day %d, %d:%02d", days, hours, minutes)
}
