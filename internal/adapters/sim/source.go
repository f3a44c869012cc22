// Package sim implements the virtual frame source: a deterministic vehicle
// physics model that emits the same five status frames a real controller
// broadcasts, through the same encoder the hardware uses.
package sim

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/ghalamif/vescflow/internal/domain"
	"github.com/ghalamif/vescflow/internal/ports"
	"github.com/ghalamif/vescflow/internal/vesc"
)

// Motor model constants: an 80100 outrunner (130KV) on a 48 V pack.
const (
	motorKV        = 130.0
	nominalVoltage = 48.0
	polePairs      = 7
	maxCurrent     = 50.0
	inertiaFactor  = 5.0
)

// Config tunes the simulator. Identical Seed and throttle/brake input
// sequences produce identical frame sequences.
type Config struct {
	Rate     float64 `yaml:"rate"` // status cadence in Hz
	Seed     int64   `yaml:"seed"`
	Throttle float64 `yaml:"throttle"` // initial throttle 0.0–1.0
}

func (c *Config) ApplyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 50.0
	}
}

func (c *Config) Validate() error {
	if c.Rate <= 0 {
		return errors.New("rate must be > 0")
	}
	if c.Throttle < 0 || c.Throttle > 1 {
		return errors.New("throttle must be within 0.0–1.0")
	}
	return nil
}

// Source generates frames on the configured cadence. Simulated time
// advances by exactly one period per tick; wall-clock pacing only spaces
// the frames out and never feeds back into the physics.
type Source struct {
	cfg    Config
	period time.Duration

	mu       sync.Mutex
	open     bool
	rng      *rand.Rand
	pending  []domain.Frame
	lastTick time.Time

	throttle float64
	brake    float64

	// physics state
	rpm        float64
	voltage    float64
	tempFET    float64
	ahConsumed float64
	whConsumed float64
	tach       float64
}

func New(cfg Config) *Source {
	cfg.ApplyDefaults()
	return &Source{
		cfg:    cfg,
		period: time.Duration(float64(time.Second) / cfg.Rate),
	}
}

// SetThrottle sets the throttle position, clamped to 0.0–1.0.
func (s *Source) SetThrottle(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttle = clamp01(v)
}

// SetBrake sets the brake position, clamped to 0.0–1.0.
func (s *Source) SetBrake(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brake = clamp01(v)
}

func (s *Source) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return errors.New("sim: already open")
	}
	s.open = true
	s.rng = rand.New(rand.NewSource(s.cfg.Seed))
	s.pending = s.pending[:0]
	s.lastTick = time.Time{}
	s.throttle = clamp01(s.cfg.Throttle)
	s.brake = 0
	s.rpm = 0
	s.voltage = nominalVoltage
	s.tempFET = 25.0
	s.ahConsumed = 0
	s.whConsumed = 0
	s.tach = 0
	return nil
}

// Receive returns the next simulated frame, pacing ticks to the configured
// cadence. It never fails fatally; the only errors are timeout and closed.
func (s *Source) Receive(timeout time.Duration) (domain.Frame, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return domain.Frame{}, ports.ErrSourceClosed
	}

	if len(s.pending) == 0 {
		wait := time.Duration(0)
		if !s.lastTick.IsZero() {
			wait = s.period - time.Since(s.lastTick)
		}
		if wait > timeout && timeout > 0 {
			s.mu.Unlock()
			time.Sleep(timeout)
			return domain.Frame{}, ports.ErrReceiveTimeout
		}
		if wait > 0 {
			s.mu.Unlock()
			time.Sleep(wait)
			s.mu.Lock()
			if !s.open {
				s.mu.Unlock()
				return domain.Frame{}, ports.ErrSourceClosed
			}
		}
		s.tick()
	}

	f := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()
	return f, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// tick advances physics by one fixed period and queues the five status
// frames. Caller holds the mutex.
func (s *Source) tick() {
	dt := s.period.Seconds()
	s.lastTick = time.Now()

	maxRPM := nominalVoltage * motorKV
	target := maxRPM * s.throttle * (1.0 - s.brake)
	s.rpm += (target - s.rpm) * dt * inertiaFactor
	s.rpm = clamp(s.rpm, 0, maxRPM)

	var motorCurrent, batteryCurrent float64
	if s.rpm > 0 {
		motorCurrent = s.rpm / maxRPM * maxCurrent * (1.0 + s.uniform(-0.1, 0.1))
		batteryCurrent = motorCurrent * 1.15 // efficiency losses on the battery side
	}

	targetTemp := 25.0 + abs(batteryCurrent)*2.0
	s.tempFET += (targetTemp - s.tempFET) * dt * 0.5

	sag := batteryCurrent * 0.1
	s.voltage = nominalVoltage - sag + s.uniform(-0.2, 0.2)

	s.ahConsumed += batteryCurrent * dt / 3600.0
	s.whConsumed += batteryCurrent * s.voltage * dt / 3600.0
	s.tach += s.rpm * polePairs / 60.0 * dt

	duty := s.throttle * (1.0 - s.brake)
	now := time.Now()

	// The duty byte caps the encodable value; the frame layout allots a
	// single scaled byte for it.
	dutyRaw := duty * 1000.0
	if dutyRaw > 255 {
		dutyRaw = 255
	}

	s.push(domain.IDThermalCurrentDuty, vesc.EncodeThermalCurrentDuty(
		int16(s.tempFET*10), int16(motorCurrent*10), uint8(dutyRaw)), now)
	s.push(domain.IDRpmVoltage, vesc.EncodeRpmVoltage(
		int32(s.rpm), uint16(s.voltage*10)), now)
	s.push(domain.IDAmpHours, vesc.EncodeAmpHours(
		int32(s.ahConsumed*10000), 0), now)
	s.push(domain.IDWattHours, vesc.EncodeWattHours(
		int32(s.whConsumed*10000), 0), now)
	s.push(domain.IDTachometer, vesc.EncodeTachometer(
		int32(s.tach), int32(abs(s.tach))), now)
}

func (s *Source) push(id uint32, data [domain.FrameDataLen]byte, at time.Time) {
	s.pending = append(s.pending, domain.Frame{
		ID:       id,
		Len:      domain.FrameDataLen,
		Data:     data,
		Received: at,
	})
}

func (s *Source) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// DriveCycle maps progress through a test run (0.0–1.0) to throttle and
// brake positions: accelerate, cruise, decelerate, then brake.
func DriveCycle(progress float64) (throttle, brake float64) {
	t := clamp01(progress)
	switch {
	case t < 0.3:
		return t / 0.3, 0
	case t < 0.6:
		return 0.7, 0
	case t < 0.8:
		return 0.7 * (1.0 - (t-0.6)/0.2), 0
	default:
		return 0, (t - 0.8) / 0.2
	}
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var _ ports.FrameSource = (*Source)(nil)
