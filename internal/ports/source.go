package ports

import (
	"errors"
	"time"

	"github.com/ghalamif/vescflow/internal/domain"
)

// ErrReceiveTimeout is returned by FrameSource.Receive when no frame arrived
// within the timeout. It is not a failure; the caller polls again.
var ErrReceiveTimeout = errors.New("vescflow: receive timeout")

// ErrSourceClosed is returned by Receive after Close.
var ErrSourceClosed = errors.New("vescflow: frame source closed")

// FrameSource produces raw CAN frames. The hardware and virtual variants
// expose identical timing and framing semantics so the pipeline never knows
// which one is active.
//
// Receive blocks for at most the given timeout. Any error other than
// ErrReceiveTimeout is fatal for the underlying handle; the caller may
// attempt Close+Open to recover.
type FrameSource interface {
	Open() error
	Receive(timeout time.Duration) (domain.Frame, error)
	Close() error
}
