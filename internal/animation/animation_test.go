package animation

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

func TestDescriptorsInstantiateWithDefaults(t *testing.T) {
	reg := plugin.NewRegistry()
	for _, desc := range Descriptors() {
		if err := reg.Register(desc); err != nil {
			t.Fatalf("register %s: %v", desc.Name, err)
		}
	}
	for _, name := range []string{"static_color", "nova", "rainbow"} {
		instance, _, err := reg.Instantiate(plugin.KindAnimation, name, nil)
		if err != nil {
			t.Fatalf("instantiate %s: %v", name, err)
		}
		if _, ok := instance.(Animation); !ok {
			t.Fatalf("%s instance (%T) does not implement Animation", name, instance)
		}
		if _, ok := instance.(Configurable); !ok {
			t.Fatalf("%s instance (%T) does not implement Configurable", name, instance)
		}
	}
}

func TestStaticColorFillsFrame(t *testing.T) {
	anim := &staticColor{}
	if err := anim.Configure(plugin.Params{"color": "#ff0000"}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if anim.PreferredInterval() != OneShot {
		t.Fatalf("preferred interval = %v, want OneShot", anim.PreferredInterval())
	}
	frame := anim.Advance(0, stripe.Geometry{Pixels: 8})
	if len(frame) != 8 {
		t.Fatalf("frame length = %d, want 8", len(frame))
	}
	for i, c := range frame {
		if c.R != 1 || c.G != 0 || c.B != 0 {
			t.Fatalf("pixel %d = %+v, want pure red", i, c)
		}
	}

	if err := anim.Configure(plugin.Params{"color": "#0000ff"}); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if frame := anim.Advance(0, stripe.Geometry{Pixels: 8}); frame[0].B != 1 {
		t.Fatalf("reconfigured pixel = %+v, want pure blue", frame[0])
	}
}

func TestNovaFrameLengthInvariant(t *testing.T) {
	anim, err := newNova(plugin.Params{"speed": 2.0}, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("new nova: %v", err)
	}
	geo := stripe.Geometry{Pixels: 60}
	for i := 0; i < 200; i++ {
		frame := anim.Advance(novaTick, geo)
		if len(frame) != geo.Pixels {
			t.Fatalf("frame %d length = %d, want %d", i, len(frame), geo.Pixels)
		}
		for p, c := range frame {
			if c.R < 0 || c.R > 1 || c.G < 0 || c.G > 1 || c.B < 0 || c.B > 1 {
				t.Fatalf("frame %d pixel %d out of range: %+v", i, p, c)
			}
		}
	}
}

func TestNovaSparksAreReaped(t *testing.T) {
	anim, err := newNova(plugin.Params{"speed": 10.0}, rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("new nova: %v", err)
	}
	geo := stripe.Geometry{Pixels: 30}
	for i := 0; i < 2000; i++ {
		anim.Advance(novaTick, geo)
	}
	// At speed 10 a spark crosses a 30 pixel stripe within a few dozen
	// steps, so the population stays far below the spawn count.
	if len(anim.sparks) > 100 {
		t.Fatalf("spark population grew to %d, dead sparks are not reaped", len(anim.sparks))
	}
}

func TestNovaConfigureKeepsSparks(t *testing.T) {
	anim, err := newNova(nil, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("new nova: %v", err)
	}
	geo := stripe.Geometry{Pixels: 40}
	for i := 0; i < 10; i++ {
		anim.Advance(novaTick, geo)
	}
	before := make([]*spark, len(anim.sparks))
	copy(before, anim.sparks)

	if err := anim.Configure(plugin.Params{"speed": 5.0}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if anim.speed != 5.0 {
		t.Fatalf("speed = %v, want 5.0", anim.speed)
	}
	if len(anim.sparks) != len(before) {
		t.Fatalf("configure changed spark population: %d -> %d", len(before), len(anim.sparks))
	}
	for i := range before {
		if anim.sparks[i] != before[i] {
			t.Fatalf("configure replaced spark %d", i)
		}
	}
}

func TestSparkPaintGlowAndTails(t *testing.T) {
	s := &spark{color: stripe.Color{R: 1}, center: 5, velocity: 1}
	s.tick(1)
	if s.age != 1 {
		t.Fatalf("age = %d, want 1", s.age)
	}

	frame := stripe.NewFrame(stripe.Geometry{Pixels: 12})
	s.paint(frame)

	wantCenter := 1 / math.Pow(2, 1.0/3)
	if !closeTo(frame[5].R, wantCenter) {
		t.Fatalf("center glow = %v, want %v", frame[5].R, wantCenter)
	}
	if !closeTo(frame[4].R, 1) || !closeTo(frame[6].R, 1) {
		t.Fatalf("tail heads = %v / %v, want 1 / 1", frame[4].R, frame[6].R)
	}
	for _, pos := range []int{0, 1, 2, 3, 7, 8, 9, 10, 11} {
		if frame[pos].R != 0 {
			t.Fatalf("pixel %d = %v, want untouched", pos, frame[pos].R)
		}
	}
}

func TestSparkDeadOnlyWhenBothTailsLeft(t *testing.T) {
	s := &spark{center: 0, velocity: 1}
	s.elapsed = 9
	s.age = 9
	if s.dead(20) {
		t.Fatal("spark with visible left tail reported dead")
	}
	s.elapsed = 40
	s.age = 40
	if !s.dead(20) {
		t.Fatal("fully departed spark still alive")
	}
}

func TestNovaRejectsSpeedOutOfRange(t *testing.T) {
	reg := plugin.NewRegistry()
	if err := reg.Register(novaDescriptor()); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _, err := reg.Instantiate(plugin.KindAnimation, "nova", plugin.Params{"speed": 100.0})
	var paramErr *plugin.ParameterError
	if !errors.As(err, &paramErr) || paramErr.Parameter != "speed" {
		t.Fatalf("error = %v, want ParameterError for speed", err)
	}
}

func TestRainbowAdvancesWithTime(t *testing.T) {
	desc := rainbowDescriptor()
	instance, err := desc.New(plugin.Params{"speed": 1.0, "saturation": 1.0})
	if err != nil {
		t.Fatalf("new rainbow: %v", err)
	}
	anim := instance.(*rainbow)
	geo := stripe.Geometry{Pixels: 10}

	first := anim.Advance(0, geo)
	second := anim.Advance(0, geo)
	if first[0] != second[0] {
		t.Fatalf("zero elapsed changed output: %+v vs %+v", first[0], second[0])
	}
	moved := anim.Advance(time.Second, geo)
	if first[0] == moved[0] {
		t.Fatal("one second elapsed left the first pixel unchanged")
	}
}

func TestRainbowZeroSaturationIsWhite(t *testing.T) {
	instance, err := rainbowDescriptor().New(plugin.Params{"saturation": 0.0})
	if err != nil {
		t.Fatalf("new rainbow: %v", err)
	}
	frame := instance.(*rainbow).Advance(time.Millisecond, stripe.Geometry{Pixels: 5})
	for i, c := range frame {
		if !closeTo(c.R, 1) || !closeTo(c.G, 1) || !closeTo(c.B, 1) {
			t.Fatalf("pixel %d = %+v, want white", i, c)
		}
	}
}

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}
