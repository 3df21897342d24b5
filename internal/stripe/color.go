package stripe

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is one pixel's RGB value with channels in [0, 1].
type Color struct {
	R float64
	G float64
	B float64
}

// Black is the all-off pixel value.
var Black = Color{}

// RGB8 quantizes the color to 8-bit channels, clamping out-of-range values.
func (c Color) RGB8() (r, g, b uint8) {
	return quantize(c.R), quantize(c.G), quantize(c.B)
}

// Scaled returns the color with every channel multiplied by factor.
func (c Color) Scaled(factor float64) Color {
	return Color{R: c.R * factor, G: c.G * factor, B: c.B * factor}
}

// Clamped returns the color with every channel clipped to [0, 1]. Additive
// blends overshoot; clamp before handing frames to the engine.
func (c Color) Clamped() Color {
	return Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}
}

// Hex renders the color as a #rrggbb string.
func (c Color) Hex() string {
	return colorful.Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}.Hex()
}

// ParseColor accepts #rgb and #rrggbb strings, with or without the leading
// hash, and returns the decoded color.
func ParseColor(value string) (Color, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Color{}, fmt.Errorf("color value is empty")
	}
	if !strings.HasPrefix(trimmed, "#") {
		trimmed = "#" + trimmed
	}
	if len(trimmed) == 4 {
		trimmed = fmt.Sprintf("#%c%c%c%c%c%c", trimmed[1], trimmed[1], trimmed[2], trimmed[2], trimmed[3], trimmed[3])
	}
	parsed, err := colorful.Hex(strings.ToLower(trimmed))
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", value, err)
	}
	return Color{R: parsed.R, G: parsed.G, B: parsed.B}, nil
}

func quantize(channel float64) uint8 {
	return uint8(clamp01(channel)*255 + 0.5)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
