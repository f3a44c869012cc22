package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/vescflow/internal/aggregate"
	"github.com/ghalamif/vescflow/internal/domain"
	"github.com/ghalamif/vescflow/internal/ports"
	"github.com/ghalamif/vescflow/internal/publish"
)

type stubObs struct {
	mu       sync.Mutex
	counters map[string]float64
}

func newStubObs() *stubObs { return &stubObs{counters: make(map[string]float64)} }

func (o *stubObs) LogInfo(msg string, fields ...ports.Field) {}
func (o *stubObs) LogError(msg string, err error, fields ...ports.Field) {}
func (o *stubObs) LogCritical(msg string, err error, fields ...ports.Field) {}
func (o *stubObs) ObserveLatency(name string, seconds float64) {}
func (o *stubObs) SetGauge(name string, v float64) {}
func (o *stubObs) IncCounter(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counters[name] += v
}

// scriptedSource replays a fixed sequence of receive outcomes, then times
// out forever (or fails forever when failAfter is set).
type scriptedSource struct {
	mu        sync.Mutex
	frames    []domain.Frame
	failAfter bool // Receive fails once the script is exhausted
	failOpens bool // reopen attempts fail too
	openErr   error
	opens     int
	closes    int
}

func (s *scriptedSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.openErr != nil {
		return s.openErr
	}
	if s.failOpens && s.opens > 1 {
		return errors.New("interface still down")
	}
	return nil
}

func (s *scriptedSource) Receive(timeout time.Duration) (domain.Frame, error) {
	s.mu.Lock()
	if len(s.frames) > 0 {
		f := s.frames[0]
		s.frames = s.frames[1:]
		s.mu.Unlock()
		return f, nil
	}
	fail := s.failAfter
	s.mu.Unlock()
	if fail {
		return domain.Frame{}, errors.New("bus gone")
	}
	time.Sleep(timeout / 10)
	return domain.Frame{}, ports.ErrReceiveTimeout
}

func (s *scriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func frameOf(id uint32, data []byte) domain.Frame {
	f := domain.Frame{ID: id, Len: uint8(len(data)), Received: time.Now()}
	copy(f.Data[:], data)
	return f
}

func newManager(src ports.FrameSource, obs ports.Observability) (*Manager, *publish.Publisher) {
	pub := publish.New(obs)
	m := NewManager(src, aggregate.New(), pub, obs, Config{
		ReceiveTimeout:    10 * time.Millisecond,
		ReconnectAttempts: 2,
		ReconnectBackoff:  5 * time.Millisecond,
	})
	return m, pub
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartProcessesFramesAndStops(t *testing.T) {
	src := &scriptedSource{frames: []domain.Frame{
		frameOf(domain.IDRpmVoltage, []byte{0x70, 0x17, 0x00, 0x00, 0xE8, 0x01, 0x00, 0x00}),
		frameOf(domain.IDThermalCurrentDuty, []byte{0x64, 0x00, 0xF4, 0x01, 0x2C, 0x00, 0x00, 0x00}),
	}}
	m, pub := newManager(src, newStubObs())

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.State() != StateRunning {
		t.Fatalf("expected running, got %s", m.State())
	}

	waitFor(t, func() bool { return m.Stats().FramesProcessed == 2 }, "frames processed")

	snap := pub.Latest()
	if snap.RPM != 6000 || snap.Voltage != float64(488)*0.1 {
		t.Fatalf("rpm/voltage not published: %+v", snap)
	}
	if snap.TempFET != 10.0 || snap.MotorCurrent != 50.0 || snap.Duty != 0.044 {
		t.Fatalf("thermal frame not published: %+v", snap)
	}

	start := time.Now()
	if err := m.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Fatalf("stop took %s, want bounded shutdown", d)
	}
	if m.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", m.State())
	}
	if src.closes == 0 {
		t.Fatalf("source must be closed on stop")
	}
}

func TestUnrecognizedFrameCountedAndSkipped(t *testing.T) {
	src := &scriptedSource{frames: []domain.Frame{
		frameOf(0x000042, make([]byte, 8)),
		frameOf(domain.IDRpmVoltage, []byte{0x70, 0x17, 0x00, 0x00, 0xE8, 0x01, 0x00, 0x00}),
	}}
	obs := newStubObs()
	m, pub := newManager(src, obs)

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	waitFor(t, func() bool { return m.Stats().FramesProcessed == 1 }, "valid frame processed")

	stats := m.Stats()
	if stats.Unrecognized != 1 {
		t.Fatalf("expected exactly 1 unrecognized frame, got %d", stats.Unrecognized)
	}
	snap := pub.Latest()
	if snap.RPM != 6000 {
		t.Fatalf("valid frame must still be applied: %+v", snap)
	}
	if m.State() != StateRunning {
		t.Fatalf("decode errors must never stop the loop, state %s", m.State())
	}
}

func TestTruncatedFrameCounted(t *testing.T) {
	src := &scriptedSource{frames: []domain.Frame{
		frameOf(domain.IDAmpHours, []byte{0x01, 0x02, 0x03}),
	}}
	m, _ := newManager(src, newStubObs())

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	waitFor(t, func() bool { return m.Stats().Truncated == 1 }, "truncated counter")
	if m.Stats().FramesProcessed != 0 {
		t.Fatalf("truncated frame must not be processed")
	}
}

func TestFatalErrorFaultsAfterRetries(t *testing.T) {
	src := &scriptedSource{failAfter: true, failOpens: true}
	m, pub := newManager(src, newStubObs())

	// Seed a snapshot so we can check the fault leaves it intact.
	src.frames = []domain.Frame{
		frameOf(domain.IDRpmVoltage, []byte{0x70, 0x17, 0x00, 0x00, 0xE8, 0x01, 0x00, 0x00}),
	}

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, func() bool { return m.State() == StateFaulted }, "faulted state")

	if m.Stats().Reconnects != 2 {
		t.Fatalf("expected 2 reconnect attempts, got %d", m.Stats().Reconnects)
	}
	if snap := pub.Latest(); snap.RPM != 6000 {
		t.Fatalf("fault must leave last snapshot intact: %+v", snap)
	}

	// Explicit restart from Faulted is allowed.
	src.mu.Lock()
	src.failAfter = false
	src.failOpens = false
	src.mu.Unlock()
	if err := m.Start(); err != nil {
		t.Fatalf("restart from faulted: %v", err)
	}
	waitFor(t, func() bool { return m.State() == StateRunning }, "running after restart")
	m.Stop()
}

func TestReconnectRecoversWithoutFaulting(t *testing.T) {
	src := &scriptedSource{failAfter: true}
	m, _ := newManager(src, newStubObs())

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	// First reopen succeeds and also heals the receive path.
	waitFor(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		if src.opens >= 2 {
			src.failAfter = false
			return true
		}
		return false
	}, "reconnect open")

	waitFor(t, func() bool { return m.State() == StateRunning && m.Stats().Reconnects >= 1 }, "recovered")
}

func TestSetSourceOnlyWhileStopped(t *testing.T) {
	src := &scriptedSource{}
	m, _ := newManager(src, newStubObs())

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SetSource(&scriptedSource{}); !errors.Is(err, ErrNotStopped) {
		t.Fatalf("expected ErrNotStopped while running, got %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := m.SetSource(&scriptedSource{}); err != nil {
		t.Fatalf("source switch while stopped: %v", err)
	}
}

func TestStartRejectedWhileRunning(t *testing.T) {
	src := &scriptedSource{}
	m, _ := newManager(src, newStubObs())

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	if err := m.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStartFailsWhenOpenFails(t *testing.T) {
	src := &scriptedSource{openErr: errors.New("no such interface")}
	m, _ := newManager(src, newStubObs())

	if err := m.Start(); err == nil {
		t.Fatalf("expected open error")
	}
	if m.State() != StateStopped {
		t.Fatalf("failed start must return to stopped, got %s", m.State())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	m, _ := newManager(&scriptedSource{}, newStubObs())
	if err := m.Stop(); err != nil {
		t.Fatalf("stop while stopped: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
