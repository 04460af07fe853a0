// Package engine provides the frame loop and the simulation that runs the Goa systems.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultFrameInterval is one frame at roughly 60 fps.
const DefaultFrameInterval = 16 * time.Millisecond

// Engine drives the simulation forward in fixed real-time frames. Each frame advances virtual
// time by Interval × Speed.
type Engine struct {
	mu sync.Mutex

	Frames   uint64        // frames stepped (monotonic)
	Elapsed  time.Duration // virtual time stepped
	Interval time.Duration // real time between frames

	speed   float64 // 1.0 = real time, 0 = paused
	running bool
	cancel  context.CancelFunc

	// OnFrame receives the virtual time of each frame. It runs under the engine lock.
	OnFrame func(dt time.Duration)
}

// NewEngine creates an engine with the given frame interval at real-time speed.
func NewEngine(interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Engine{Interval: interval, speed: 1}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
	slog.Info("engine speed changed", "speed", speed)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run steps frames until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.running = true
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	slog.Info("simulation engine started", "frame_interval", e.Interval, "speed", e.Speed())

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.running = false
			frames, elapsed := e.Frames, e.Elapsed
			e.mu.Unlock()
			slog.Info("simulation engine stopped", "frames", frames, "elapsed", elapsed)
			return
		case <-ticker.C:
			e.frame()
		}
	}
}

// Stop halts a running loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) frame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.speed <= 0 {
		return
	}
	e.stepLocked(time.Duration(float64(e.Interval) * e.speed))
}

// Step advances one frame of dt virtual time regardless of speed.
func (e *Engine) Step(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepLocked(dt)
}

func (e *Engine) stepLocked(dt time.Duration) {
	e.Frames++
	e.Elapsed += dt
	if e.OnFrame != nil {
		e.OnFrame(dt)
	}
}

// Do runs fn under the engine lock, between frames.
func (e *Engine) Do(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}
