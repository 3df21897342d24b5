package protocol_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"glow/internal/engine"
	"glow/internal/plugin"
	"glow/internal/protocol"
)

func TestNewStateCarriesVersionAndInterval(t *testing.T) {
	st := engine.State{
		Seq:        7,
		Status:     engine.StatusRunning,
		Animation:  "nova",
		Params:     plugin.Params{"speed": 2.0},
		Transport:  "udp",
		Brightness: 0.8,
		Interval:   50 * time.Millisecond,
		Pixels:     60,
		FramesSent: 120,
	}
	wire := protocol.NewState(st)
	if wire.Version != protocol.Version {
		t.Fatalf("version = %d, want %d", wire.Version, protocol.Version)
	}
	if wire.Seq != 7 || wire.Status != "running" || wire.Animation != "nova" {
		t.Fatalf("unexpected state %+v", wire)
	}
	if wire.IntervalMS != 50 {
		t.Fatalf("interval = %v ms, want 50", wire.IntervalMS)
	}

	// The wire params are a copy, not a view of the engine's map.
	wire.Params["speed"] = 9.0
	if st.Params["speed"] != 2.0 {
		t.Fatal("mutating the wire state leaked into the engine state")
	}
}

func TestNewStateOmitsIdleInterval(t *testing.T) {
	wire := protocol.NewState(engine.State{Status: engine.StatusStopped})
	if wire.IntervalMS != 0 {
		t.Fatalf("stopped state carries interval %v", wire.IntervalMS)
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "interval_ms") {
		t.Fatalf("idle interval serialized: %s", raw)
	}
}

func TestRequestBrightnessZeroSurvivesSerialization(t *testing.T) {
	level := 0.0
	raw, err := json.Marshal(protocol.Request{ID: "1", Op: protocol.OpSetBrightness, Brightness: &level})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"brightness":0`) {
		t.Fatalf("brightness 0 dropped from request: %s", raw)
	}

	var decoded protocol.Request
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Brightness == nil || *decoded.Brightness != 0 {
		t.Fatalf("decoded brightness = %v, want explicit 0", decoded.Brightness)
	}

	raw, err = json.Marshal(protocol.Request{ID: "2", Op: protocol.OpStop})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "brightness") {
		t.Fatalf("absent brightness serialized: %s", raw)
	}
}

func TestErrorNamesParameter(t *testing.T) {
	err := &protocol.Error{Code: protocol.CodeInvalidParameter, Message: "out of range", Parameter: "speed"}
	if got := err.Error(); !strings.Contains(got, "speed") || !strings.Contains(got, "invalid_parameter") {
		t.Fatalf("error text %q omits code or parameter", got)
	}
}

func TestNewPluginInfoSortsParameters(t *testing.T) {
	desc := plugin.Descriptor{
		Name: "demo",
		Kind: plugin.KindAnimation,
		Schema: plugin.Schema{
			"zeta":  {Type: plugin.ParamFloat, Default: 1.0},
			"alpha": {Type: plugin.ParamString, Choices: []string{"x", "y"}},
		},
	}
	info := protocol.NewPluginInfo(desc)
	if len(info.Params) != 2 {
		t.Fatalf("param count = %d, want 2", len(info.Params))
	}
	if info.Params[0].Name != "alpha" || info.Params[1].Name != "zeta" {
		t.Fatalf("params not sorted: %s, %s", info.Params[0].Name, info.Params[1].Name)
	}
	if len(info.Params[0].Choices) != 2 {
		t.Fatalf("choices lost: %+v", info.Params[0])
	}
}

func TestEventEnvelopeShape(t *testing.T) {
	ev := protocol.Event{
		Event: protocol.EventState,
		Seq:   3,
		State: protocol.NewState(engine.State{Seq: 3, Status: engine.StatusPaused, Pixels: 10}),
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["event"] != "state" {
		t.Fatalf("event field = %v", decoded["event"])
	}
	state, ok := decoded["state"].(map[string]any)
	if !ok {
		t.Fatalf("state field missing: %s", raw)
	}
	if state["version"] != float64(protocol.Version) {
		t.Fatalf("state version = %v", state["version"])
	}
	if state["status"] != "paused" {
		t.Fatalf("state status = %v", state["status"])
	}
}
