package engine

import (
	"time"

	"glow/internal/plugin"
)

// Status is the engine's lifecycle phase.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

// State is an immutable snapshot of the engine. Seq increases by one for
// every applied mutation; snapshots taken without a mutation reuse the
// current value.
type State struct {
	Seq        uint64
	Status     Status
	Animation  string
	Params     plugin.Params
	Transport  string
	Brightness float64
	Interval   time.Duration
	Pixels     int
	FramesSent uint64
	LastError  string
	UpdatedAt  time.Time
}
