package engine

import "errors"

var (
	// ErrCommandRejected reports a command that is not valid in the
	// engine's current state, such as Resume while stopped.
	ErrCommandRejected = errors.New("command rejected")
	// ErrFrameSizeMismatch reports an animation that returned a frame
	// whose length does not match the stripe geometry. The engine treats
	// this as a contract breach and stops.
	ErrFrameSizeMismatch = errors.New("frame size mismatch")
	// ErrClosed reports a command submitted after shutdown began.
	ErrClosed = errors.New("engine closed")
)
