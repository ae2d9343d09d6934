// Package engine provides the decision engine that owns every agent's
// decision maker and the shared memory, and the frame loop that drives it.
package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/mini-mind/internal/agents"
	"github.com/talgya/mini-mind/internal/memory"
	"github.com/talgya/mini-mind/internal/telemetry"
)

// DefaultUpdateFrequency is the population update interval in seconds.
const DefaultUpdateFrequency = 0.1

// Engine owns all decision makers and the global memory store. Update is
// called once per frame; the population is updated at most once per
// update frequency.
type Engine struct {
	makers []*agents.DecisionMaker
	global *memory.Store

	updateFrequency float64
	accumulator     float64
	ticks           uint64

	workers int
	metrics *telemetry.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithUpdateFrequency sets the population update interval in seconds.
func WithUpdateFrequency(seconds float64) Option {
	return func(e *Engine) {
		e.updateFrequency = seconds
	}
}

// WithWorkers runs per-agent updates on up to n goroutines. Decision makers
// never share local state, and the global decay runs after they finish.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithMetrics attaches metric instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine with an empty population.
func New(opts ...Option) *Engine {
	e := &Engine{
		global:          memory.NewGlobal(),
		updateFrequency: DefaultUpdateFrequency,
		workers:         1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GlobalMemory returns the shared memory store.
func (e *Engine) GlobalMemory() *memory.Store { return e.global }

// UpdateFrequency returns the population update interval in seconds.
func (e *Engine) UpdateFrequency() float64 { return e.updateFrequency }

// Ticks returns how many population updates have fired.
func (e *Engine) Ticks() uint64 { return e.ticks }

// Pending returns the accumulated time not yet drained by an update.
func (e *Engine) Pending() float64 { return e.accumulator }

// Update accumulates dt and, once the update frequency is reached, updates
// every decision maker and decays the global memory by dt. Time below the
// threshold is carried over to the next call.
func (e *Engine) Update(dt float64) {
	e.accumulator += dt
	if e.accumulator < e.updateFrequency {
		return
	}
	e.accumulator = 0
	start := time.Now()

	if e.workers > 1 && len(e.makers) > 1 {
		var g errgroup.Group
		g.SetLimit(e.workers)
		for _, dm := range e.makers {
			g.Go(func() error {
				dm.Update(dt)
				return nil
			})
		}
		g.Wait()
	} else {
		for _, dm := range e.makers {
			dm.Update(dt)
		}
	}

	e.global.Decay(dt)
	e.ticks++

	e.metrics.RecordUpdate(context.Background(), len(e.makers), time.Since(start).Seconds(), e.global.Len())
}

// AddDecisionMaker adds dm to the population.
func (e *Engine) AddDecisionMaker(dm *agents.DecisionMaker) {
	e.makers = append(e.makers, dm)
}

// RemoveDecisionMaker removes dm by identity, swapping the last element
// into its slot. It reports whether dm was found.
func (e *Engine) RemoveDecisionMaker(dm *agents.DecisionMaker) bool {
	for i, m := range e.makers {
		if m != dm {
			continue
		}
		last := len(e.makers) - 1
		e.makers[i] = e.makers[last]
		e.makers[last] = nil
		e.makers = e.makers[:last]
		return true
	}
	return false
}

// ActiveDecisionMakers returns the population size.
func (e *Engine) ActiveDecisionMakers() int {
	return len(e.makers)
}

// DecisionMakers returns a copy of the population in iteration order.
func (e *Engine) DecisionMakers() []*agents.DecisionMaker {
	out := make([]*agents.DecisionMaker, len(e.makers))
	copy(out, e.makers)
	return out
}
