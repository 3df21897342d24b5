// Package animation defines the frame-generator contract the engine renders
// through, plus the shipped variants (static_color, nova, rainbow).
//
// An animation is a stateful generator: Advance is called once per frame
// with the time that passed since the previous call and must return a frame
// matching the given geometry. Variants differ only in internal state and
// the mapping from elapsed time to colors; the engine is agnostic to which
// one is active.
package animation

import (
	"math"
	"time"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

// OneShot is the preferred interval of animations that render a single
// frame and then idle until reconfigured (a static color, for example).
const OneShot = time.Duration(math.MaxInt64)

// Animation produces successive frames for one stripe.
type Animation interface {
	// Advance renders the next frame. elapsed is the time since the
	// previous Advance call, zero on the first call after instantiation.
	// The returned frame must have exactly geo.Pixels entries.
	Advance(elapsed time.Duration, geo stripe.Geometry) stripe.Frame

	// PreferredInterval reports the pacing the animation wants. Zero means
	// no preference; OneShot means render once and idle. The engine
	// re-reads this every iteration and clamps it against the transport
	// and configured limits.
	PreferredInterval() time.Duration
}

// Configurable is implemented by animations that accept live parameter
// updates without losing their progression state. The engine falls back to
// re-instantiating animations that do not implement it.
type Configurable interface {
	Configure(params plugin.Params) error
}

// Descriptors returns the registry entries for the shipped animations.
func Descriptors() []plugin.Descriptor {
	return []plugin.Descriptor{
		staticColorDescriptor(),
		novaDescriptor(),
		rainbowDescriptor(),
	}
}
