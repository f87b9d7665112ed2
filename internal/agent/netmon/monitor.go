// Package netmon tracks device connectivity and announces transitions.
package netmon

import (
	"context"
	"sync"
	"time"

	"rescue-alert-service/internal/agent/metrics"
	Logger "rescue-alert-service/pkg/logger"
)

// State of connectivity. Unknown is treated as disconnected by every caller.
type State int

const (
	Unknown State = iota
	Disconnected
	Connected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Prober asks the platform (here: the backend) whether the device is online.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// Monitor owns the process-wide NetworkState. It is the only writer.
type Monitor struct {
	prober Prober

	mu          sync.RWMutex
	state       State
	listeners   []func(State)
	onReconnect []func()
}

// New returns a monitor in the Unknown state.
func New(prober Prober) *Monitor {
	return &Monitor{prober: prober}
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Connected reports whether the current state is Connected.
func (m *Monitor) Connected() bool {
	return m.State() == Connected
}

// Subscribe registers fn for every state change. fn runs on the goroutine that observed the change.
func (m *Monitor) Subscribe(fn func(State)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// OnReconnect registers fn to run once per transition into Connected from any other state.
func (m *Monitor) OnReconnect(fn func()) {
	m.mu.Lock()
	m.onReconnect = append(m.onReconnect, fn)
	m.mu.Unlock()
}

// Check probes once and applies the result. A probe error counts as disconnected.
func (m *Monitor) Check(ctx context.Context) State {
	next := Connected
	if err := m.prober.Probe(ctx); err != nil {
		next = Disconnected
	}
	m.Set(next)
	return next
}

// Set applies an observed state. Repeating the current state notifies nobody.
func (m *Monitor) Set(next State) {
	m.mu.Lock()
	prev := m.state
	if prev == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	listeners := append([]func(State){}, m.listeners...)
	var reconnect []func()
	if next == Connected {
		reconnect = append(reconnect, m.onReconnect...)
	}
	m.mu.Unlock()

	if next == Connected {
		metrics.Connected.Set(1)
	} else {
		metrics.Connected.Set(0)
	}
	Logger.Info("[NETMON] 网络状态变化: %s -> %s", prev, next)

	for _, fn := range listeners {
		fn(next)
	}
	for _, fn := range reconnect {
		fn()
	}
}

// Run probes every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
