package protocol

import (
	"fmt"
	"time"

	"glow/internal/logging"
)

// Version is carried in every state payload so clients can detect
// incompatible protocol changes.
const Version = 1

// Operation names accepted in Request.Op.
const (
	OpSelectAnimation = "select_animation"
	OpSetParameters   = "set_parameters"
	OpPause           = "pause"
	OpResume          = "resume"
	OpStop            = "stop"
	OpBindTransport   = "bind_transport"
	OpSetBrightness   = "set_brightness"
	OpGetState        = "get_state"
	OpListPlugins     = "list_plugins"
	OpSubscribe       = "subscribe"
	OpUnsubscribe     = "unsubscribe"
	OpSceneList       = "scene_list"
	OpSceneSave       = "scene_save"
	OpSceneDelete     = "scene_delete"
	OpSceneRename     = "scene_rename"
	OpSceneActivate   = "scene_activate"
	OpLogTail         = "log_tail"
)

// Error codes carried in Reply.Error.Code.
const (
	CodeNotFound             = "not_found"
	CodeDuplicateName        = "duplicate_name"
	CodeInvalidParameter     = "invalid_parameter"
	CodeFrameSizeMismatch    = "frame_size_mismatch"
	CodeFrameTooLarge        = "frame_too_large"
	CodeTransportUnavailable = "transport_unavailable"
	CodeCommandRejected      = "command_rejected"
	CodeBadRequest           = "bad_request"
	CodeInternal             = "internal"
)

// Request is one client command. ID is client-chosen and echoed on the
// reply so concurrent requests can be correlated.
type Request struct {
	ID string `json:"id"`
	Op string `json:"op"`

	// Name addresses an animation, transport, or scene depending on Op.
	Name string `json:"name,omitempty"`
	// Params carries animation or transport parameters.
	Params map[string]any `json:"params,omitempty"`
	// Brightness is a pointer so 0 (dark) is distinguishable from absent.
	Brightness *float64 `json:"brightness,omitempty"`
	// NewName is the target name for scene_rename.
	NewName string `json:"new_name,omitempty"`

	// Cursor fields for log_tail.
	Since uint64 `json:"since,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Wait  bool   `json:"wait,omitempty"`
}

// Reply answers exactly one Request.
type Reply struct {
	ID      string       `json:"id"`
	OK      bool         `json:"ok"`
	State   *State       `json:"state,omitempty"`
	Plugins []PluginInfo `json:"plugins,omitempty"`
	Scenes  []SceneInfo  `json:"scenes,omitempty"`
	Logs    []LogLine    `json:"logs,omitempty"`
	// NextSeq is the log_tail cursor for the next fetch.
	NextSeq uint64 `json:"next_seq,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error describes a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Parameter names the rejected parameter for invalid_parameter.
	Parameter string `json:"parameter,omitempty"`
}

func (e *Error) Error() string {
	if e.Parameter != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Parameter, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// EventState is the only event type currently pushed.
const EventState = "state"

// Event is pushed to subscribed sessions after every applied command.
type Event struct {
	Event string `json:"event"`
	Seq   uint64 `json:"seq"`
	State State  `json:"state"`
}

// State is the wire form of the engine state.
type State struct {
	Version    int            `json:"version"`
	Seq        uint64         `json:"seq"`
	Status     string         `json:"status"`
	Animation  string         `json:"animation,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	Transport  string         `json:"transport,omitempty"`
	Brightness float64        `json:"brightness"`
	IntervalMS float64        `json:"interval_ms,omitempty"`
	Pixels     int            `json:"pixels"`
	FramesSent uint64         `json:"frames_sent"`
	LastError  string         `json:"last_error,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// PluginInfo describes one registered animation or transport.
type PluginInfo struct {
	Name    string      `json:"name"`
	Kind    string      `json:"kind"`
	Summary string      `json:"summary,omitempty"`
	Params  []ParamInfo `json:"params,omitempty"`
}

// ParamInfo describes one schema parameter.
type ParamInfo struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Default     any      `json:"default,omitempty"`
	Min         float64  `json:"min,omitempty"`
	Max         float64  `json:"max,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Description string   `json:"description,omitempty"`
}

// SceneInfo is the wire form of a stored preset.
type SceneInfo struct {
	Name       string         `json:"name"`
	Animation  string         `json:"animation"`
	Params     map[string]any `json:"params,omitempty"`
	Brightness float64        `json:"brightness"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// LogLine mirrors the daemon's in-memory log stream entries for log_tail
// callers.
type LogLine = logging.LogEvent
