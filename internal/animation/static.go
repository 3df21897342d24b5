package animation

import (
	"time"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

// staticColor fills the whole stripe with one color. It renders exactly one
// frame per configuration; the engine idles it between parameter changes.
type staticColor struct {
	color stripe.Color
}

func staticColorDescriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "static_color",
		Kind:    plugin.KindAnimation,
		Summary: "Fill the stripe with a single color",
		Schema: plugin.Schema{
			"color": {Type: plugin.ParamColor, Default: "#ffffff", Description: "Fill color"},
		},
		New: func(params plugin.Params) (any, error) {
			anim := &staticColor{}
			if err := anim.Configure(params); err != nil {
				return nil, err
			}
			return anim, nil
		},
	}
}

func (a *staticColor) Configure(params plugin.Params) error {
	color, err := colorParam(params, "color", a.color)
	if err != nil {
		return err
	}
	a.color = color
	return nil
}

func (a *staticColor) Advance(_ time.Duration, geo stripe.Geometry) stripe.Frame {
	return stripe.NewFrame(geo).Fill(a.color)
}

func (a *staticColor) PreferredInterval() time.Duration {
	return OneShot
}
