package engine

import (
	"context"

	"glow/internal/plugin"
)

type commandKind int

const (
	cmdSelectAnimation commandKind = iota
	cmdSetParameters
	cmdPause
	cmdResume
	cmdStop
	cmdBindTransport
	cmdSetBrightness
	cmdApplyScene
	cmdGetState
)

func (k commandKind) String() string {
	switch k {
	case cmdSelectAnimation:
		return "select_animation"
	case cmdSetParameters:
		return "set_parameters"
	case cmdPause:
		return "pause"
	case cmdResume:
		return "resume"
	case cmdStop:
		return "stop"
	case cmdBindTransport:
		return "bind_transport"
	case cmdSetBrightness:
		return "set_brightness"
	case cmdApplyScene:
		return "apply_scene"
	case cmdGetState:
		return "get_state"
	}
	return "unknown"
}

type command struct {
	kind       commandKind
	name       string
	params     plugin.Params
	brightness float64
	reply      chan commandResult
}

type commandResult struct {
	state State
	err   error
}

// submit enqueues cmd and blocks until the loop replies, the engine shuts
// down, or ctx is cancelled. A cancelled caller does not cancel the
// command; it may still be applied.
func (e *Engine) submit(ctx context.Context, cmd command) (State, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.reply = make(chan commandResult, 1)
	select {
	case e.commands <- cmd:
	case <-e.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res.state, res.err
	case <-e.done:
		// The loop drains pending commands on shutdown, so prefer a
		// late reply over ErrClosed when both are ready.
		select {
		case res := <-cmd.reply:
			return res.state, res.err
		default:
			return State{}, ErrClosed
		}
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// SelectAnimation instantiates the named animation with params validated
// against its schema and starts rendering it. Any in-flight frame of the
// previous animation completes first. Requires a bound transport.
func (e *Engine) SelectAnimation(ctx context.Context, name string, params plugin.Params) (State, error) {
	return e.submit(ctx, command{kind: cmdSelectAnimation, name: name, params: params})
}

// SetParameters applies a partial parameter update to the active
// animation. Unknown keys and constraint violations reject the whole
// update; the running animation is untouched on failure.
func (e *Engine) SetParameters(ctx context.Context, params plugin.Params) (State, error) {
	return e.submit(ctx, command{kind: cmdSetParameters, params: params})
}

// Pause freezes rendering, leaving the last frame on the stripe.
func (e *Engine) Pause(ctx context.Context) (State, error) {
	return e.submit(ctx, command{kind: cmdPause})
}

// Resume continues a paused animation with its instance state intact.
func (e *Engine) Resume(ctx context.Context) (State, error) {
	return e.submit(ctx, command{kind: cmdResume})
}

// Stop ends rendering, discards the animation instance, and blacks out the
// stripe. Stopping an already stopped engine succeeds without effect.
// Stop preempts an in-progress send retry.
func (e *Engine) Stop(ctx context.Context) (State, error) {
	return e.submit(ctx, command{kind: cmdStop})
}

// BindTransport instantiates the named transport and swaps it in; the
// previous transport is closed. On failure the previous binding stays
// active.
func (e *Engine) BindTransport(ctx context.Context, name string, params plugin.Params) (State, error) {
	return e.submit(ctx, command{kind: cmdBindTransport, name: name, params: params})
}

// SetBrightness scales all output by value in [0, 1]. A paused or idle
// stripe is repainted immediately so the change is visible.
func (e *Engine) SetBrightness(ctx context.Context, value float64) (State, error) {
	return e.submit(ctx, command{kind: cmdSetBrightness, brightness: value})
}

// ApplyScene selects an animation and sets brightness as one atomic
// command, producing a single state event.
func (e *Engine) ApplyScene(ctx context.Context, animationName string, params plugin.Params, brightness float64) (State, error) {
	return e.submit(ctx, command{kind: cmdApplyScene, name: animationName, params: params, brightness: brightness})
}

// State returns a snapshot, ordered against mutations through the same
// queue.
func (e *Engine) State(ctx context.Context) (State, error) {
	return e.submit(ctx, command{kind: cmdGetState})
}
