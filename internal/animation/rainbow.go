package animation

import (
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

// One full hue rotation every ten seconds at speed 1.
const rainbowDegreesPerSecond = 36.0

// rainbow sweeps a hue ramp along the stripe. Unlike nova it is purely
// time-based, so it reports no preferred interval and renders at whatever
// rate the engine settles on.
type rainbow struct {
	speed      float64
	saturation float64
	phase      float64
}

func rainbowDescriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "rainbow",
		Kind:    plugin.KindAnimation,
		Summary: "Hue ramp cycling along the stripe",
		Schema: plugin.Schema{
			"speed":      {Type: plugin.ParamFloat, Default: 1.0, Min: 0.1, Max: 10.0, Description: "Rotation speed multiplier"},
			"saturation": {Type: plugin.ParamFloat, Default: 1.0, Min: 0.0, Max: 1.0, Description: "Color saturation"},
		},
		New: func(params plugin.Params) (any, error) {
			anim := &rainbow{speed: 1.0, saturation: 1.0}
			if err := anim.Configure(params); err != nil {
				return nil, err
			}
			return anim, nil
		},
	}
}

func (a *rainbow) Configure(params plugin.Params) error {
	speed, err := floatParam(params, "speed", a.speed)
	if err != nil {
		return err
	}
	saturation, err := floatParam(params, "saturation", a.saturation)
	if err != nil {
		return err
	}
	a.speed = speed
	a.saturation = saturation
	return nil
}

func (a *rainbow) PreferredInterval() time.Duration {
	return 0
}

func (a *rainbow) Advance(elapsed time.Duration, geo stripe.Geometry) stripe.Frame {
	a.phase = math.Mod(a.phase+elapsed.Seconds()*a.speed*rainbowDegreesPerSecond, 360)
	frame := stripe.NewFrame(geo)
	for i := range frame {
		hue := math.Mod(a.phase+360*float64(i)/float64(geo.Pixels), 360)
		c := colorful.Hsv(hue, a.saturation, 1)
		frame[i] = stripe.Color{R: c.R, G: c.G, B: c.B}
	}
	return frame
}
