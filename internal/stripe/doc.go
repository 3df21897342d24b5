// Package stripe defines the pixel-level data model shared by animations,
// transports, and the engine: colors, frames, and stripe geometry.
//
// Colors carry float64 channels in [0, 1] so animation math composes without
// repeated quantization; conversion to 8-bit wire values happens once, at the
// transport edge. Frames are plain slices treated as immutable snapshots:
// producers allocate a fresh frame per render and consumers never mutate one.
package stripe
