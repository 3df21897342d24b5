package stripe

// Frame is one complete per-pixel snapshot of the stripe. Length always
// matches the geometry of the session that produced it.
type Frame []Color

// Geometry describes the addressable shape of the stripe for one engine
// session.
type Geometry struct {
	Pixels int
}

// NewFrame allocates an all-black frame for the given geometry.
func NewFrame(geo Geometry) Frame {
	return make(Frame, geo.Pixels)
}

// Fill sets every pixel to the given color and returns the frame for
// chaining.
func (f Frame) Fill(c Color) Frame {
	for i := range f {
		f[i] = c
	}
	return f
}

// Clone returns an independent copy of the frame.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// Scaled returns a new frame with every channel multiplied by factor,
// leaving the receiver untouched.
func (f Frame) Scaled(factor float64) Frame {
	if factor == 1 {
		return f
	}
	out := make(Frame, len(f))
	for i, c := range f {
		out[i] = c.Scaled(factor)
	}
	return out
}

// Bytes quantizes the frame to consecutive 8-bit R,G,B triplets in pixel
// order, the layout every shipped transport writes on the wire.
func (f Frame) Bytes() []byte {
	out := make([]byte, 0, len(f)*3)
	for _, c := range f {
		r, g, b := c.RGB8()
		out = append(out, r, g, b)
	}
	return out
}
