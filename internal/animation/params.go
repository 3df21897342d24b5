package animation

import (
	"fmt"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

// Parameter values reach animations schema-normalized (see plugin.Schema),
// so these helpers only guard against a descriptor whose schema and
// Configure disagree about a type.

func colorParam(params plugin.Params, name string, fallback stripe.Color) (stripe.Color, error) {
	raw, ok := params[name]
	if !ok {
		return fallback, nil
	}
	str, ok := raw.(string)
	if !ok {
		return stripe.Color{}, fmt.Errorf("parameter %q: expected color string, got %T", name, raw)
	}
	color, err := stripe.ParseColor(str)
	if err != nil {
		return stripe.Color{}, fmt.Errorf("parameter %q: %w", name, err)
	}
	return color, nil
}

func floatParam(params plugin.Params, name string, fallback float64) (float64, error) {
	raw, ok := params[name]
	if !ok {
		return fallback, nil
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("parameter %q: expected float, got %T", name, raw)
	}
	return f, nil
}
