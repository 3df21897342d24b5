package animation

import (
	"math"
	"math/rand"
	"time"

	"glow/internal/plugin"
	"glow/internal/stripe"
)

const (
	novaTick          = time.Second / 30
	novaInitialSparks = 3
	novaSpawnDivisor  = 60.0
	novaGlowLifetime  = 24
	novaTailLength    = 10
)

// nova scatters short-lived sparks across the stripe: each spark flares at
// a random center, decays exponentially, and throws two fading tails that
// travel outward until they leave the viewport. Progression is
// frame-counted: one simulation step per rendered frame, paced by the
// preferred interval.
type nova struct {
	speed  float64
	sparks []*spark
	rng    *rand.Rand
	pixels int
}

// spark is one flare. Its own velocity divides the shared time step, so
// slow sparks linger while fast ones race off the edges.
type spark struct {
	color    stripe.Color
	center   int
	elapsed  float64
	age      int
	velocity int
}

func novaDescriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "nova",
		Kind:    plugin.KindAnimation,
		Summary: "Randomly flaring sparks with fading tails",
		Schema: plugin.Schema{
			"speed": {Type: plugin.ParamFloat, Default: 1.0, Min: 0.1, Max: 10.0, Description: "Animation speed multiplier"},
		},
		New: func(params plugin.Params) (any, error) {
			return newNova(params, rand.New(rand.NewSource(time.Now().UnixNano())))
		},
	}
}

func newNova(params plugin.Params, rng *rand.Rand) (*nova, error) {
	anim := &nova{speed: 1.0, rng: rng}
	if err := anim.Configure(params); err != nil {
		return nil, err
	}
	return anim, nil
}

func (a *nova) Configure(params plugin.Params) error {
	speed, err := floatParam(params, "speed", a.speed)
	if err != nil {
		return err
	}
	a.speed = speed
	return nil
}

func (a *nova) PreferredInterval() time.Duration {
	return novaTick
}

func (a *nova) Advance(_ time.Duration, geo stripe.Geometry) stripe.Frame {
	if a.pixels != geo.Pixels {
		a.reset(geo.Pixels)
	}
	a.step()

	frame := stripe.NewFrame(geo)
	for _, s := range a.sparks {
		s.paint(frame)
	}
	for i := range frame {
		frame[i] = frame[i].Clamped()
	}
	return frame
}

func (a *nova) reset(pixels int) {
	a.pixels = pixels
	a.sparks = a.sparks[:0]
	for i := 0; i < novaInitialSparks; i++ {
		a.sparks = append(a.sparks, newSpark(pixels, a.rng))
	}
}

func (a *nova) step() {
	if a.rng.Float64() < a.speed/novaSpawnDivisor {
		a.sparks = append(a.sparks, newSpark(a.pixels, a.rng))
	}
	alive := a.sparks[:0]
	for _, s := range a.sparks {
		s.tick(a.speed)
		if !s.dead(a.pixels) {
			alive = append(alive, s)
		}
	}
	a.sparks = alive
}

func newSpark(pixels int, rng *rand.Rand) *spark {
	half := func() float64 { return 0.5 * float64(rng.Intn(3)) }
	return &spark{
		color:    stripe.Color{R: half(), G: half(), B: half()},
		center:   rng.Intn(pixels),
		velocity: rng.Intn(3) + 1,
	}
}

func (s *spark) tick(step float64) {
	s.elapsed += step
	s.age = int(s.elapsed / float64(s.velocity))
}

func (s *spark) paint(frame stripe.Frame) {
	if s.age < novaGlowLifetime {
		addScaled(frame, s.center, s.color, math.Pow(2, float64(s.age)/3))
	}
	if s.age <= 0 {
		return
	}

	left := s.center - s.age
	if left >= -novaTailLength {
		end := left + novaTailLength
		if end > s.center {
			end = s.center
		}
		for exp, pos := 0, left; pos < end; exp, pos = exp+1, pos+1 {
			if pos >= 0 {
				addScaled(frame, pos, s.color, math.Pow(2, float64(exp)))
			}
		}
	}

	right := s.center + s.age
	if right < len(frame)+novaTailLength {
		end := right - novaTailLength
		if end < s.center {
			end = s.center
		}
		for exp, pos := 0, right; pos > end; exp, pos = exp+1, pos-1 {
			if pos < len(frame) {
				addScaled(frame, pos, s.color, math.Pow(2, float64(exp)))
			}
		}
	}
}

func (s *spark) dead(pixels int) bool {
	return s.center-s.age+novaTailLength < 0 && s.center+s.age >= pixels+novaTailLength
}

func addScaled(frame stripe.Frame, pos int, color stripe.Color, divisor float64) {
	if pos < 0 || pos >= len(frame) {
		return
	}
	frame[pos] = stripe.Color{
		R: frame[pos].R + color.R/divisor,
		G: frame[pos].G + color.G/divisor,
		B: frame[pos].B + color.B/divisor,
	}
}
