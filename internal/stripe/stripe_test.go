package stripe_test

import (
	"testing"

	"glow/internal/stripe"
)

func TestParseColor(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  stripe.Color
	}{
		{name: "long hex", input: "#ff8000", want: stripe.Color{R: 1, G: 128.0 / 255, B: 0}},
		{name: "short hex", input: "#f80", want: stripe.Color{R: 1, G: 136.0 / 255, B: 0}},
		{name: "missing hash", input: "00ff00", want: stripe.Color{G: 1}},
		{name: "uppercase", input: "#FFFFFF", want: stripe.Color{R: 1, G: 1, B: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := stripe.ParseColor(tc.input)
			if err != nil {
				t.Fatalf("ParseColor(%q): %v", tc.input, err)
			}
			if !closeTo(got.R, tc.want.R) || !closeTo(got.G, tc.want.G) || !closeTo(got.B, tc.want.B) {
				t.Fatalf("ParseColor(%q) = %+v, want %+v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseColorRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "#12", "#nothex", "red"} {
		if _, err := stripe.ParseColor(input); err == nil {
			t.Fatalf("ParseColor(%q) succeeded, want error", input)
		}
	}
}

func TestColorRGB8Clamps(t *testing.T) {
	r, g, b := stripe.Color{R: 2.5, G: -1, B: 0.5}.RGB8()
	if r != 255 || g != 0 || b != 128 {
		t.Fatalf("RGB8 = (%d, %d, %d), want (255, 0, 128)", r, g, b)
	}
}

func TestColorHexRoundTrip(t *testing.T) {
	c, err := stripe.ParseColor("#3366cc")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if hex := c.Hex(); hex != "#3366cc" {
		t.Fatalf("Hex = %q, want %q", hex, "#3366cc")
	}
}

func TestFrameBytes(t *testing.T) {
	frame := stripe.Frame{{R: 1}, {G: 1}, {B: 0.5}}
	got := frame.Bytes()
	want := []byte{255, 0, 0, 0, 255, 0, 0, 0, 128}
	if len(got) != len(want) {
		t.Fatalf("Bytes length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Bytes[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFrameScaledLeavesOriginal(t *testing.T) {
	frame := stripe.NewFrame(stripe.Geometry{Pixels: 4}).Fill(stripe.Color{R: 1, G: 1, B: 1})
	dimmed := frame.Scaled(0.25)
	if frame[0].R != 1 {
		t.Fatalf("Scaled mutated the source frame: %+v", frame[0])
	}
	if !closeTo(dimmed[3].G, 0.25) {
		t.Fatalf("Scaled channel = %v, want 0.25", dimmed[3].G)
	}
}

func TestFrameCloneIsIndependent(t *testing.T) {
	frame := stripe.NewFrame(stripe.Geometry{Pixels: 2}).Fill(stripe.Color{R: 0.5})
	clone := frame.Clone()
	clone[0] = stripe.Color{B: 1}
	if frame[0].B != 0 {
		t.Fatalf("clone write leaked into source: %+v", frame[0])
	}
}

func closeTo(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
