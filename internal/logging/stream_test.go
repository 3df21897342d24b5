package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestStreamHubTailReturnsMostRecent(t *testing.T) {
	hub := NewStreamHub(16)
	hub.Publish(LogEvent{Message: "one"})
	hub.Publish(LogEvent{Message: "two"})
	hub.Publish(LogEvent{Message: "three"})

	events, next := hub.Tail(2)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Message != "two" || events[1].Message != "three" {
		t.Fatalf("unexpected tail order: %q, %q", events[0].Message, events[1].Message)
	}
	if next != 3 {
		t.Fatalf("next sequence = %d, want 3", next)
	}
}

func TestStreamHubEvictsOldest(t *testing.T) {
	hub := NewStreamHub(4)
	for i := 0; i < 6; i++ {
		hub.Publish(LogEvent{Message: "m"})
	}
	if first := hub.FirstSequence(); first != 3 {
		t.Fatalf("first sequence = %d, want 3", first)
	}
	events, _ := hub.Tail(0)
	if len(events) != 4 {
		t.Fatalf("buffer length = %d, want 4", len(events))
	}
}

func TestStreamHubFetchSince(t *testing.T) {
	hub := NewStreamHub(16)
	for i := 0; i < 5; i++ {
		hub.Publish(LogEvent{Message: "m"})
	}

	events, next, err := hub.Fetch(context.Background(), 2, 0, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events after seq 2, got %d", len(events))
	}
	if events[0].Sequence != 3 {
		t.Fatalf("first sequence = %d, want 3", events[0].Sequence)
	}
	if next != 5 {
		t.Fatalf("next = %d, want 5", next)
	}
}

func TestStreamHubFetchTruncatedBatchCursor(t *testing.T) {
	hub := NewStreamHub(16)
	for i := 0; i < 5; i++ {
		hub.Publish(LogEvent{Message: "m"})
	}

	events, next, err := hub.Fetch(context.Background(), 0, 2, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if next != 2 {
		t.Fatalf("truncated cursor = %d, want 2", next)
	}

	events, next, err = hub.Fetch(context.Background(), next, 0, false)
	if err != nil {
		t.Fatalf("second Fetch returned error: %v", err)
	}
	if len(events) != 3 || events[0].Sequence != 3 {
		t.Fatalf("expected remaining events from seq 3, got %+v", events)
	}
	if next != 5 {
		t.Fatalf("final cursor = %d, want 5", next)
	}
}

func TestStreamHubFetchWaitWakesOnPublish(t *testing.T) {
	hub := NewStreamHub(16)

	go func() {
		time.Sleep(20 * time.Millisecond)
		hub.Publish(LogEvent{Message: "late"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events, _, err := hub.Fetch(ctx, 0, 0, true)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 1 || events[0].Message != "late" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestStreamHubFetchWaitHonorsContext(t *testing.T) {
	hub := NewStreamHub(16)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, _, err := hub.Fetch(ctx, 0, 0, true)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not return after cancellation")
	}
}

func TestStreamHandlerPromotesFields(t *testing.T) {
	hub := NewStreamHub(16)
	base := slog.NewTextHandler(discardWriter{}, nil)
	handler := newStreamHandler(base, hub)

	logger := slog.New(handler).
		With(slog.String(FieldComponent, "engine")).
		With(slog.String(FieldAnimation, "nova"))

	logger.Info("frame sent", slog.String(FieldTransport, "udp"), slog.Int("pixels", 60))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	evt := events[0]
	if evt.Component != "engine" {
		t.Errorf("component = %q, want engine", evt.Component)
	}
	if evt.Animation != "nova" {
		t.Errorf("animation = %q, want nova", evt.Animation)
	}
	if evt.Transport != "udp" {
		t.Errorf("transport = %q, want udp", evt.Transport)
	}
	if evt.Fields["pixels"] != "60" {
		t.Errorf("pixels field = %q, want 60", evt.Fields["pixels"])
	}
}

func TestStreamHandlerCallSiteOverridesWithAttrs(t *testing.T) {
	hub := NewStreamHub(16)
	base := slog.NewTextHandler(discardWriter{}, nil)
	handler := newStreamHandler(base, hub)

	logger := slog.New(handler).With(slog.String(FieldAnimation, "rainbow"))
	logger.Info("swap", slog.String(FieldAnimation, "nova"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Animation != "nova" {
		t.Errorf("animation = %q, want nova", events[0].Animation)
	}
}

func TestStreamHandlerNilHubReturnsBase(t *testing.T) {
	base := slog.NewTextHandler(discardWriter{}, nil)
	if handler := newStreamHandler(base, nil); handler != base {
		t.Error("expected base handler when hub is nil")
	}
}

func TestStreamHandlerEnabledDelegates(t *testing.T) {
	hub := NewStreamHub(16)
	base := slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := newStreamHandler(base, hub)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected INFO to be disabled when base level is WARN")
	}
	if !handler.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected WARN to be enabled when base level is WARN")
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
