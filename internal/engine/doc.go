// Package engine runs the render loop that turns an animation into frames
// on a stripe.
//
// All mutable state is owned by a single goroutine. Control operations are
// submitted as commands over a FIFO queue and applied between frames, so a
// command never observes a half-rendered swap and every accepted mutation
// produces exactly one sequence-numbered state event. Frame pacing follows
// the active animation's preferred interval, clamped by the transport's
// rate limit and the configured FPS ceiling, with drift correction against
// the scheduled wake time rather than the previous send.
package engine
