package transport

import (
	"sync"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

// Loopback swallows frames and remembers the newest one. It is the default
// for configurations without hardware attached and the sink tests inspect.
type Loopback struct {
	mu    sync.Mutex
	last  stripe.Frame
	count uint64
	caps  Capabilities
}

func loopDescriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "loop",
		Kind:    plugin.KindTransport,
		Summary: "In-process sink recording the last frame (no hardware)",
		Schema: plugin.Schema{
			"max_pixels": {Type: plugin.ParamInt, Default: 0, Min: 0, Max: 1 << 20, Description: "Reported pixel limit, 0 for unlimited"},
			"max_rate":   {Type: plugin.ParamFloat, Default: 0.0, Min: 0, Max: 100000, Description: "Reported rate limit in fps, 0 for unlimited"},
		},
		New: func(params plugin.Params) (any, error) {
			pixels, _ := params["max_pixels"].(int)
			rate, _ := params["max_rate"].(float64)
			return NewLoopback(Capabilities{MaxPixels: pixels, MaxRate: rate}), nil
		},
	}
}

// NewLoopback returns a loopback sink reporting the given capabilities.
func NewLoopback(caps Capabilities) *Loopback {
	return &Loopback{caps: caps}
}

func (t *Loopback) Capabilities() Capabilities {
	return t.caps
}

func (t *Loopback) Send(frame stripe.Frame) error {
	if err := checkSize(frame, t.caps); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = frame.Clone()
	t.count++
	return nil
}

// LastFrame returns a copy of the newest frame and how many frames have
// been sent in total.
func (t *Loopback) LastFrame() (stripe.Frame, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last.Clone(), t.count
}

func (t *Loopback) Close() error {
	return nil
}
