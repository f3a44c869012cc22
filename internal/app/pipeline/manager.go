// Package pipeline runs the receive → decode → aggregate → publish loop and
// owns its lifecycle. The loop goroutine is the only writer of the live
// snapshot; everyone else reads through the publisher.
package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghalamif/vescflow/internal/aggregate"
	"github.com/ghalamif/vescflow/internal/domain"
	"github.com/ghalamif/vescflow/internal/ports"
	"github.com/ghalamif/vescflow/internal/publish"
	"github.com/ghalamif/vescflow/internal/vesc"
)

// State is the manager lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFaulted:
		return "faulted"
	}
	return "unknown"
}

var (
	// ErrNotStopped is returned when an operation requires the Stopped state.
	ErrNotStopped = errors.New("pipeline: manager is not stopped")
	// ErrAlreadyRunning is returned by Start outside Stopped/Faulted.
	ErrAlreadyRunning = errors.New("pipeline: manager already running")
)

// Config tunes the receive loop and its fault recovery.
type Config struct {
	ReceiveTimeout    time.Duration
	ReconnectAttempts int
	ReconnectBackoff  time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = 100 * time.Millisecond
	}
	if c.ReconnectAttempts <= 0 {
		c.ReconnectAttempts = 5
	}
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = 500 * time.Millisecond
	}
}

// Stats are the loop's error and progress counters. No error is swallowed
// without showing up here.
type Stats struct {
	FramesProcessed uint64
	Unrecognized    uint64
	Truncated       uint64
	Timeouts        uint64
	Reconnects      uint64
}

// Manager drives a frame source through the decode/aggregate/publish chain.
type Manager struct {
	cfg Config
	agg *aggregate.Aggregator
	pub *publish.Publisher
	obs ports.Observability

	state atomic.Int32

	mu     sync.Mutex
	source ports.FrameSource
	stopCh chan struct{}
	doneCh chan struct{}

	framesProcessed atomic.Uint64
	unrecognized    atomic.Uint64
	truncated       atomic.Uint64
	timeouts        atomic.Uint64
	reconnects      atomic.Uint64
}

func NewManager(source ports.FrameSource, agg *aggregate.Aggregator, pub *publish.Publisher, obs ports.Observability, cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{
		cfg:    cfg,
		agg:    agg,
		pub:    pub,
		obs:    obs,
		source: source,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Stats returns a copy of the loop counters.
func (m *Manager) Stats() Stats {
	return Stats{
		FramesProcessed: m.framesProcessed.Load(),
		Unrecognized:    m.unrecognized.Load(),
		Truncated:       m.truncated.Load(),
		Timeouts:        m.timeouts.Load(),
		Reconnects:      m.reconnects.Load(),
	}
}

// SetSource swaps the frame source. Only permitted while Stopped so the
// loop never observes a source change mid-flight.
func (m *Manager) SetSource(src ports.FrameSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() != StateStopped {
		return fmt.Errorf("%w: cannot switch source in state %s", ErrNotStopped, m.State())
	}
	m.source = src
	return nil
}

// Start opens the source and launches the receive loop. Accepted from
// Stopped and, as an explicit restart, from Faulted.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.State()
	if st != StateStopped && st != StateFaulted {
		return fmt.Errorf("%w: state %s", ErrAlreadyRunning, st)
	}
	m.state.Store(int32(StateStarting))

	if st == StateFaulted {
		// The faulted handle is dead; drop it before reopening.
		_ = m.source.Close()
	}
	if err := m.source.Open(); err != nil {
		m.state.Store(int32(st))
		return fmt.Errorf("pipeline: open source: %w", err)
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.state.Store(int32(StateRunning))
	go m.run(m.source, m.stopCh, m.doneCh)

	m.obs.LogInfo("pipeline_started")
	return nil
}

// Stop requests a cooperative shutdown and waits for the loop to drain.
// The wait is bounded: the loop's only blocking point is the timed receive.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.State() {
	case StateStopped:
		return nil
	case StateFaulted:
		m.state.Store(int32(StateStopped))
		return m.source.Close()
	case StateRunning, StateStarting:
	default:
		return fmt.Errorf("pipeline: stop during %s", m.State())
	}

	m.state.Store(int32(StateStopping))
	close(m.stopCh)

	select {
	case <-m.doneCh:
	case <-time.After(m.cfg.ReceiveTimeout + m.cfg.ReconnectBackoff + time.Second):
		m.obs.LogError("pipeline_stop_timeout", errors.New("receive loop did not drain in time"))
	}

	err := m.source.Close()
	m.state.Store(int32(StateStopped))
	m.obs.LogInfo("pipeline_stopped")
	return err
}

func (m *Manager) run(src ports.FrameSource, stopCh chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		frame, err := src.Receive(m.cfg.ReceiveTimeout)
		switch {
		case err == nil:
			m.process(frame)

		case errors.Is(err, ports.ErrReceiveTimeout):
			m.timeouts.Add(1)
			m.obs.IncCounter("vescflow_receive_timeouts_total", 1)

		case errors.Is(err, ports.ErrSourceClosed):
			// Closed under us: either Stop is in flight or the handle died.
			if !m.recover(src, stopCh) {
				return
			}

		default:
			m.obs.LogError("receive_failed", err)
			if !m.recover(src, stopCh) {
				return
			}
		}
	}
}

// recover attempts a bounded number of reopen retries with backoff. It
// returns false when the loop must exit, either because a stop was
// requested or because the retries are exhausted and the manager faulted.
// The last published snapshot stays intact either way.
func (m *Manager) recover(src ports.FrameSource, stopCh chan struct{}) bool {
	for attempt := 1; attempt <= m.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-stopCh:
			return false
		case <-time.After(m.cfg.ReconnectBackoff):
		}

		m.reconnects.Add(1)
		m.obs.IncCounter("vescflow_reconnects_total", 1)

		_ = src.Close()
		if err := src.Open(); err != nil {
			m.obs.LogError("reconnect_failed", err,
				ports.Field{Key: "attempt", Value: attempt})
			continue
		}
		m.obs.LogInfo("reconnected", ports.Field{Key: "attempt", Value: attempt})
		return true
	}

	// Only fault if a stop did not win the race.
	if m.state.CompareAndSwap(int32(StateRunning), int32(StateFaulted)) {
		m.obs.LogCritical("transport_faulted",
			fmt.Errorf("gave up after %d reconnect attempts", m.cfg.ReconnectAttempts))
	}
	return false
}

func (m *Manager) process(frame domain.Frame) {
	m.obs.IncCounter("vescflow_frames_received_total", 1)

	frag, err := vesc.Decode(frame)
	if err != nil {
		switch {
		case errors.Is(err, vesc.ErrUnrecognizedFrame):
			m.unrecognized.Add(1)
			m.obs.IncCounter("vescflow_frames_unrecognized_total", 1)
		case errors.Is(err, vesc.ErrTruncated):
			m.truncated.Add(1)
			m.obs.IncCounter("vescflow_frames_truncated_total", 1)
		default:
			m.obs.LogError("decode_failed", err)
		}
		return
	}

	snap, changed := m.agg.Merge(frag)
	m.pub.Publish(snap, changed)
	m.framesProcessed.Add(1)

	m.obs.ObserveLatency("vescflow_pipeline_latency_seconds", time.Since(frame.Received).Seconds())
	m.obs.SetGauge("vescflow_rpm", float64(snap.RPM))
	m.obs.SetGauge("vescflow_voltage_volts", snap.Voltage)
	m.obs.SetGauge("vescflow_duty", snap.Duty)
	m.obs.SetGauge("vescflow_temp_fet_celsius", snap.TempFET)
	m.obs.SetGauge("vescflow_power_watts", snap.Power())
}
