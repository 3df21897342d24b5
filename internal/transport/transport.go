// Package transport delivers finished frames to LED hardware.
//
// A transport is bound once per engine session (rebinding is possible but
// rare) and afterwards only sees Send calls from the engine loop. Shipped
// backends: udp (datagram stripe protocol), opc (Open Pixel Control
// servers such as a Fadecandy), spi (directly attached stripes), and loop
// (in-process sink for tests and dry runs).
package transport

import (
	"errors"
	"fmt"
	"time"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

var (
	// ErrUnavailable reports unreachable hardware. The engine retries
	// sends a bounded number of times before forcing a stop.
	ErrUnavailable = errors.New("transport unavailable")
	// ErrFrameTooLarge reports a frame exceeding the transport's
	// addressable pixel count.
	ErrFrameTooLarge = errors.New("frame exceeds transport pixel limit")
)

// Hardware writes are given this long before they count as failed.
const writeTimeout = 250 * time.Millisecond

// Capabilities describes what a bound transport can move. Zero values mean
// unlimited.
type Capabilities struct {
	MaxPixels int
	MaxRate   float64
}

// Transport is the delivery contract the engine sends frames through.
type Transport interface {
	Send(frame stripe.Frame) error
	Capabilities() Capabilities
	Close() error
}

// Descriptors returns the registry entries for the shipped transports.
func Descriptors() []plugin.Descriptor {
	return []plugin.Descriptor{
		udpDescriptor(),
		opcDescriptor(),
		spiDescriptor(),
		loopDescriptor(),
	}
}

func checkSize(frame stripe.Frame, caps Capabilities) error {
	if caps.MaxPixels > 0 && len(frame) > caps.MaxPixels {
		return fmt.Errorf("frame of %d pixels exceeds limit of %d: %w", len(frame), caps.MaxPixels, ErrFrameTooLarge)
	}
	return nil
}
