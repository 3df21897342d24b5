package control

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"glow/internal/protocol"
)

const (
	dialTimeout    = 5 * time.Second
	requestTimeout = 10 * time.Second
	// logTailTimeout outlasts the gateway's long-poll budget so a
	// wait=true fetch returns an empty batch instead of a dead conn.
	logTailTimeout = 35 * time.Second
)

// ErrUnexpectedReply reports a frame that does not answer the request in
// flight. The connection should be closed after it.
var ErrUnexpectedReply = errors.New("unexpected reply")

// Client is a control connection to the daemon gateway. It is not safe
// for concurrent use; the CLI drives one request at a time.
type Client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	nextID uint64
	queued []protocol.Event
}

// Dial connects to the gateway websocket endpoint, ws://host:port/ws.
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		resp.Body.Close()
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection, unblocking any pending read.
func (c *Client) Close() error {
	return c.conn.Close()
}

// envelope is the superset of reply and event frames.
type envelope struct {
	protocol.Reply
	Event    string `json:"event"`
	EventSeq uint64 `json:"seq"`
}

func (env *envelope) toEvent() protocol.Event {
	ev := protocol.Event{Event: env.Event, Seq: env.EventSeq}
	if env.State != nil {
		ev.State = *env.State
	}
	return ev
}

func deadlineFor(ctx context.Context, fallback time.Duration) time.Time {
	deadline := time.Now().Add(fallback)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}

// do sends one request and waits for its reply, queueing pushed events
// that arrive in between. A reply carrying an error surfaces it as a
// *protocol.Error.
func (c *Client) do(ctx context.Context, timeout time.Duration, req protocol.Request) (*protocol.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.nextID++
	req.ID = fmt.Sprintf("c%d", c.nextID)
	deadline := deadlineFor(ctx, timeout)
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Op, err)
	}

	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return nil, fmt.Errorf("read %s reply: %w", req.Op, err)
		}
		if env.Event != "" {
			c.queued = append(c.queued, env.toEvent())
			continue
		}
		if env.ID != req.ID {
			return nil, fmt.Errorf("%w: got id %q, want %q", ErrUnexpectedReply, env.ID, req.ID)
		}
		if env.Error != nil {
			return nil, env.Error
		}
		if !env.OK {
			return nil, fmt.Errorf("%w: reply neither ok nor erroring", ErrUnexpectedReply)
		}
		reply := env.Reply
		return &reply, nil
	}
}

// doState runs a state-returning operation.
func (c *Client) doState(ctx context.Context, req protocol.Request) (*protocol.State, error) {
	reply, err := c.do(ctx, requestTimeout, req)
	if err != nil {
		return nil, err
	}
	if reply.State == nil {
		return nil, fmt.Errorf("%w: %s reply carries no state", ErrUnexpectedReply, req.Op)
	}
	return reply.State, nil
}

// State fetches the current engine state.
func (c *Client) State(ctx context.Context) (*protocol.State, error) {
	return c.doState(ctx, protocol.Request{Op: protocol.OpGetState})
}

// SelectAnimation starts the named animation with the given parameters.
func (c *Client) SelectAnimation(ctx context.Context, name string, params map[string]any) (*protocol.State, error) {
	return c.doState(ctx, protocol.Request{Op: protocol.OpSelectAnimation, Name: name, Params: params})
}

// SetParameters reconfigures the active animation.
func (c *Client) SetParameters(ctx context.Context, params map[string]any) (*protocol.State, error) {
	return c.doState(ctx, protocol.Request{Op: protocol.OpSetParameters, Params: params})
}

// Pause freezes the running animation.
func (c *Client) Pause(ctx context.Context) (*protocol.State, error) {
	return c.doState(ctx, protocol.Request{Op: protocol.OpPause})
}

// Resume continues a paused animation.
func (c *Client) Resume(ctx context.Context) (*protocol.State, error) {
	return c.doState(ctx, protocol.Request{Op: protocol.OpResume})
}

// Stop halts rendering and blacks out the stripe.
func (c *Client) Stop(ctx context.Context) (*protocol.State, error) {
	return c.doState(ctx, protocol.Request{Op: protocol.OpStop})
}

// BindTransport switches frame delivery to the named transport.
func (c *Client) BindTransport(ctx context.Context, name string, params map[string]any) (*protocol.State, error) {
	return c.doState(ctx, protocol.Request{Op: protocol.OpBindTransport, Name: name, Params: params})
}

// SetBrightness sets the global output brightness, 0 to 1.
func (c *Client) SetBrightness(ctx context.Context, level float64) (*protocol.State, error) {
	return c.doState(ctx, protocol.Request{Op: protocol.OpSetBrightness, Brightness: &level})
}

// ListPlugins returns every registered animation and transport.
func (c *Client) ListPlugins(ctx context.Context) ([]protocol.PluginInfo, error) {
	reply, err := c.do(ctx, requestTimeout, protocol.Request{Op: protocol.OpListPlugins})
	if err != nil {
		return nil, err
	}
	return reply.Plugins, nil
}

// Scenes lists the stored presets.
func (c *Client) Scenes(ctx context.Context) ([]protocol.SceneInfo, error) {
	reply, err := c.do(ctx, requestTimeout, protocol.Request{Op: protocol.OpSceneList})
	if err != nil {
		return nil, err
	}
	return reply.Scenes, nil
}

// SaveScene stores the engine's current look under the given name.
func (c *Client) SaveScene(ctx context.Context, name string) (*protocol.SceneInfo, error) {
	reply, err := c.do(ctx, requestTimeout, protocol.Request{Op: protocol.OpSceneSave, Name: name})
	if err != nil {
		return nil, err
	}
	if len(reply.Scenes) != 1 {
		return nil, fmt.Errorf("%w: scene_save returned %d scenes", ErrUnexpectedReply, len(reply.Scenes))
	}
	return &reply.Scenes[0], nil
}

// DeleteScene removes a stored preset.
func (c *Client) DeleteScene(ctx context.Context, name string) error {
	_, err := c.do(ctx, requestTimeout, protocol.Request{Op: protocol.OpSceneDelete, Name: name})
	return err
}

// RenameScene renames a stored preset.
func (c *Client) RenameScene(ctx context.Context, oldName, newName string) error {
	_, err := c.do(ctx, requestTimeout, protocol.Request{Op: protocol.OpSceneRename, Name: oldName, NewName: newName})
	return err
}

// ActivateScene applies a stored preset as one atomic engine command.
func (c *Client) ActivateScene(ctx context.Context, name string) (*protocol.State, error) {
	return c.doState(ctx, protocol.Request{Op: protocol.OpSceneActivate, Name: name})
}

// LogTail fetches daemon log lines after the since cursor. With wait set
// the call blocks server-side until a line arrives or the poll budget
// expires; an empty batch with an advanced cursor is a normal outcome.
func (c *Client) LogTail(ctx context.Context, since uint64, limit int, wait bool) ([]protocol.LogLine, uint64, error) {
	reply, err := c.do(ctx, logTailTimeout, protocol.Request{
		Op:    protocol.OpLogTail,
		Since: since,
		Limit: limit,
		Wait:  wait,
	})
	if err != nil {
		return nil, since, err
	}
	return reply.Logs, reply.NextSeq, nil
}

// Subscribe starts the state event stream and returns the snapshot the
// stream continues from. Use NextEvent to consume it.
func (c *Client) Subscribe(ctx context.Context) (*protocol.State, error) {
	return c.doState(ctx, protocol.Request{Op: protocol.OpSubscribe})
}

// Unsubscribe stops the event stream.
func (c *Client) Unsubscribe(ctx context.Context) error {
	_, err := c.do(ctx, requestTimeout, protocol.Request{Op: protocol.OpUnsubscribe})
	return err
}

// NextEvent returns the next pushed state event. Without a context
// deadline it blocks until an event arrives or Close is called.
func (c *Client) NextEvent(ctx context.Context) (*protocol.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queued) > 0 {
		ev := c.queued[0]
		c.queued = c.queued[1:]
		return &ev, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var readDeadline time.Time
	if d, ok := ctx.Deadline(); ok {
		readDeadline = d
	}
	if err := c.conn.SetReadDeadline(readDeadline); err != nil {
		return nil, err
	}
	var env envelope
	if err := c.conn.ReadJSON(&env); err != nil {
		return nil, err
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: reply id %q while waiting for events", ErrUnexpectedReply, env.ID)
	}
	ev := env.toEvent()
	return &ev, nil
}
