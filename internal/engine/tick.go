package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultFrameInterval is the simulated length of one frame.
const DefaultFrameInterval = 50 * time.Millisecond

// Loop drives the host simulation forward one frame at a time.
type Loop struct {
	Interval time.Duration // Simulated frame length; also the real-time pacing at speed 1

	// Called every frame with the simulated seconds per frame.
	OnFrame func(frame uint64, dt float64)

	mu      sync.Mutex
	frame   uint64
	speed   float64 // Multiplier: 1.0 = real-time, 0 = paused
	running bool
	stop    chan struct{}
}

// NewLoop creates a frame loop with default settings.
func NewLoop() *Loop {
	return &Loop{
		Interval: DefaultFrameInterval,
		speed:    1.0,
	}
}

// Frame returns the number of frames run so far.
func (l *Loop) Frame() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frame
}

// Speed returns the current speed multiplier.
func (l *Loop) Speed() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.speed
}

// SetSpeed changes the speed multiplier. Zero or below pauses the loop.
func (l *Loop) SetSpeed(speed float64) {
	l.mu.Lock()
	l.speed = speed
	l.mu.Unlock()
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Run steps frames until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	l.running = true
	l.stop = make(chan struct{})
	stop := l.stop
	l.mu.Unlock()

	slog.Info("frame loop started", "frame", l.Frame(), "speed", l.Speed(), "interval", l.Interval)

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		slog.Info("frame loop stopped", "frame", l.Frame())
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		default:
		}

		speed := l.Speed()
		if speed <= 0 {
			// Paused: sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		l.Step()

		// Sleep for the remainder of the frame, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(l.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}
}

// Stop halts a running loop.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running && l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
}

// Step advances exactly one frame.
func (l *Loop) Step() {
	l.mu.Lock()
	l.frame++
	frame := l.frame
	l.mu.Unlock()

	if l.OnFrame != nil {
		l.OnFrame(frame, l.Interval.Seconds())
	}
}

// SimTime returns the simulated time elapsed after frame frames.
func SimTime(frame uint64, interval time.Duration) time.Duration {
	return time.Duration(frame) * interval
}
