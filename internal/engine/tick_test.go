package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoopStep(t *testing.T) {
	l := NewLoop()
	l.Interval = 100 * time.Millisecond

	var frames []uint64
	var dts []float64
	l.OnFrame = func(frame uint64, dt float64) {
		frames = append(frames, frame)
		dts = append(dts, dt)
	}

	l.Step()
	l.Step()

	assert.Equal(t, []uint64{1, 2}, frames)
	assert.Equal(t, []float64{0.1, 0.1}, dts)
	assert.Equal(t, uint64(2), l.Frame())
}

func TestLoopDrivesEngine(t *testing.T) {
	e := New()
	l := NewLoop()
	l.Interval = 50 * time.Millisecond
	l.OnFrame = func(_ uint64, dt float64) { e.Update(dt) }

	for i := 0; i < 4; i++ {
		l.Step()
	}
	assert.Equal(t, uint64(2), e.Ticks())
}

func TestLoopRunStopsOnContext(t *testing.T) {
	l := NewLoop()
	l.Interval = time.Millisecond
	l.SetSpeed(10)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	l.Run(ctx)
	assert.False(t, l.Running())
	assert.Positive(t, l.Frame())
}

func TestLoopStop(t *testing.T) {
	l := NewLoop()
	l.Interval = time.Millisecond

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	assert.Eventually(t, l.Running, time.Second, time.Millisecond)
	l.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestSimTime(t *testing.T) {
	assert.Equal(t, 3*time.Second, SimTime(60, 50*time.Millisecond))
}
