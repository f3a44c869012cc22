// Package socketcan implements the hardware frame source on a Linux raw
// CAN socket.
package socketcan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ghalamif/vescflow/internal/domain"
	"github.com/ghalamif/vescflow/internal/ports"
)

// can_frame wire layout constants (Linux SocketCAN).
const (
	frameSize  = 16
	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
	canErrFlag = 0x20000000
	canEffMask = 0x1FFFFFFF
	canStdMask = 0x7FF
)

// Config selects the CAN interface and the receive timeout granularity.
type Config struct {
	Interface   string        `yaml:"interface"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Interface == "" {
		c.Interface = "can0"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 100 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	if c.Interface == "" {
		return errors.New("interface is required")
	}
	return nil
}

// Source reads classical CAN frames from a raw AF_CAN socket. Receive is
// bounded by SO_RCVTIMEO so the manager loop can observe stop requests.
type Source struct {
	cfg Config

	mu   sync.Mutex
	fd   int
	open bool
}

func New(cfg Config) *Source {
	cfg.ApplyDefaults()
	return &Source{cfg: cfg, fd: -1}
}

func (s *Source) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return fmt.Errorf("socketcan: %s already open", s.cfg.Interface)
	}

	ifi, err := net.InterfaceByName(s.cfg.Interface)
	if err != nil {
		return fmt.Errorf("socketcan: lookup %s: %w", s.cfg.Interface, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return fmt.Errorf("socketcan: socket: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		unix.Close(fd)
		return fmt.Errorf("socketcan: bind %s: %w", s.cfg.Interface, err)
	}

	tv := unix.NsecToTimeval(s.cfg.ReadTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return fmt.Errorf("socketcan: set read timeout: %w", err)
	}

	s.fd = fd
	s.open = true
	return nil
}

// Receive blocks until a frame arrives or the socket timeout fires. The
// timeout argument reconfigures SO_RCVTIMEO when it differs from the
// configured one; most callers pass the configured value.
func (s *Source) Receive(timeout time.Duration) (domain.Frame, error) {
	s.mu.Lock()
	fd, open := s.fd, s.open
	s.mu.Unlock()
	if !open {
		return domain.Frame{}, ports.ErrSourceClosed
	}

	if timeout > 0 && timeout != s.cfg.ReadTimeout {
		tv := unix.NsecToTimeval(timeout.Nanoseconds())
		if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			return domain.Frame{}, fmt.Errorf("socketcan: set read timeout: %w", err)
		}
	}

	var buf [frameSize]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
				return domain.Frame{}, ports.ErrReceiveTimeout
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return domain.Frame{}, fmt.Errorf("socketcan: read %s: %w", s.cfg.Interface, err)
		}
		if n < frameSize {
			return domain.Frame{}, fmt.Errorf("socketcan: short read: %d bytes", n)
		}
		frame, ok := parseFrame(buf)
		if !ok {
			// RTR and error frames carry no telemetry.
			continue
		}
		return frame, nil
	}
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	s.open = false
	fd := s.fd
	s.fd = -1
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("socketcan: close: %w", err)
	}
	return nil
}

// parseFrame decodes the 16-byte can_frame layout: 32-bit ID with flag bits,
// DLC at byte 4, data at bytes 8..15.
func parseFrame(buf [frameSize]byte) (domain.Frame, bool) {
	id := binary.LittleEndian.Uint32(buf[0:4])
	if id&(canRtrFlag|canErrFlag) != 0 {
		return domain.Frame{}, false
	}

	var f domain.Frame
	if id&canEffFlag != 0 {
		f.ID = id & canEffMask
	} else {
		f.ID = id & canStdMask
	}
	f.Len = buf[4]
	if f.Len > domain.FrameDataLen {
		f.Len = domain.FrameDataLen
	}
	copy(f.Data[:], buf[8:16])
	f.Received = time.Now()
	return f, true
}

var _ ports.FrameSource = (*Source)(nil)
