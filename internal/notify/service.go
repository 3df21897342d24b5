package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"glow/internal/config"
	"glow/internal/logging"
)

const userAgent = "Glow/0.1.0"

// Service is the alerting surface handed to the engine and the daemon.
// EngineStopped and TransportFailure return immediately; delivery runs in
// the background. Test delivers synchronously so the CLI gets a verdict.
type Service interface {
	EngineStopped(ctx context.Context, reason string)
	TransportFailure(ctx context.Context, transportName string, err error)
	Test(ctx context.Context) error
}

// NewService builds an ntfy-backed service when a topic is configured and
// a silent one otherwise.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	window := time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		timeout:       timeout,
		dedupWindow:   window,
		engineErrors:  cfg.Notifications.EngineErrors,
		transportLoss: cfg.Notifications.TransportLoss,
		logger:        logging.NewComponentLogger(logger, "notify"),
		lastSent:      make(map[string]time.Time),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	timeout       time.Duration
	dedupWindow   time.Duration
	engineErrors  bool
	transportLoss bool
	logger        *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func (n *ntfyService) EngineStopped(_ context.Context, reason string) {
	if !n.engineErrors {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown cause"
	}
	n.post(payload{
		title:    "Glow - Engine Stopped",
		message:  fmt.Sprintf("Rendering stopped: %s", reason),
		tags:     []string{"glow", "engine", "stopped"},
		priority: "high",
	})
}

func (n *ntfyService) TransportFailure(_ context.Context, transportName string, err error) {
	if !n.transportLoss {
		return
	}
	transportName = strings.TrimSpace(transportName)
	if transportName == "" {
		transportName = "unknown"
	}
	detail := "unknown error"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	n.post(payload{
		title:    "Glow - Transport Failure",
		message:  fmt.Sprintf("Transport %s lost: %s", transportName, detail),
		tags:     []string{"glow", "transport", "failure"},
		priority: "high",
	})
}

func (n *ntfyService) Test(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Glow - Test",
		message:  "Notification system test",
		tags:     []string{"glow", "test"},
		priority: "low",
	})
}

// post delivers in the background with a detached timeout so callers in
// the render path never block on the network.
func (n *ntfyService) post(data payload) {
	if n.suppressed(data) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.send(ctx, data); err != nil {
			logging.WarnWithContext(n.logger, "notification delivery failed", "notify_send_failed",
				logging.Error(err),
				logging.String("title", data.title),
				logging.String(logging.FieldImpact, "operator alert was not delivered"),
				logging.String(logging.FieldErrorHint, "check the ntfy topic URL and network reachability"))
		}
	}()
}

// suppressed drops an alert identical to one sent inside the dedup
// window, so a flapping transport does not flood the operator.
func (n *ntfyService) suppressed(data payload) bool {
	if n.dedupWindow <= 0 {
		return false
	}
	key := data.title + "|" + data.message
	now := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if sent, ok := n.lastSent[key]; ok && now.Sub(sent) < n.dedupWindow {
		n.logger.Debug("duplicate notification suppressed", logging.String("title", data.title))
		return true
	}
	n.lastSent[key] = now
	return false
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) EngineStopped(context.Context, string) {}

func (noopService) TransportFailure(context.Context, string, error) {}

func (noopService) Test(context.Context) error {
	return errors.New("notifications are not configured; set ntfy_topic in the config")
}
