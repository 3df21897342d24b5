package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"glow/internal/engine"
	"glow/internal/logging"
	"glow/internal/protocol"
)

// session is one connected control client. The read loop owns request
// dispatch, so a session has at most one request in flight; the event
// pump shares the connection through writeMu.
type session struct {
	id     string
	server *Server
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	subMu     sync.Mutex
	subCancel func()
	subDone   chan struct{}
}

func newSession(s *Server, conn *websocket.Conn) *session {
	id := uuid.NewString()
	return &session{
		id:     id,
		server: s,
		conn:   conn,
		logger: s.logger.With(logging.String(logging.FieldClient, id)),
	}
}

// run reads requests until the client disconnects or the server closes.
func (sess *session) run(ctx context.Context) {
	defer sess.teardown()
	sess.conn.SetReadLimit(maxRequestBytes)
	for {
		_, payload, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.logger.Debug("session read ended", logging.Error(err))
			}
			return
		}
		var req protocol.Request
		if err := json.Unmarshal(payload, &req); err != nil {
			sess.logger.Debug("malformed request", logging.Error(err))
			sess.sendError(protocol.Request{}, protocol.CodeBadRequest, "malformed request: "+err.Error())
			continue
		}
		sess.dispatch(ctx, req)
	}
}

// writeJSON serializes connection writes across the read loop and the
// event pump.
func (sess *session) writeJSON(v any) error {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if err := sess.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return sess.conn.WriteJSON(v)
}

func (sess *session) sendReply(reply protocol.Reply) {
	if err := sess.writeJSON(reply); err != nil {
		sess.logger.Debug("reply write failed", logging.Error(err))
		sess.close()
	}
}

func (sess *session) sendError(req protocol.Request, code, message string) {
	sess.sendReply(protocol.Reply{
		ID:    req.ID,
		Error: &protocol.Error{Code: code, Message: message},
	})
}

// close forces the connection down. The read loop unblocks with an error
// and runs the normal teardown.
func (sess *session) close() {
	_ = sess.conn.Close()
}

func (sess *session) teardown() {
	sess.dropSubscription()
	_ = sess.conn.Close()
}

// subscribe registers for engine events and replies with a snapshot of
// the current state. The snapshot is taken after registration so nothing
// falls between it and the first pushed event; the pump drops events the
// snapshot already covers.
func (sess *session) subscribe(ctx context.Context, req protocol.Request) {
	sess.subMu.Lock()
	already := sess.subCancel != nil
	var (
		events <-chan engine.State
		done   chan struct{}
	)
	if !already {
		ch, cancel := sess.server.engine.Subscribe()
		events = ch
		done = make(chan struct{})
		sess.subCancel = cancel
		sess.subDone = done
	}
	sess.subMu.Unlock()

	st, err := sess.server.engine.State(ctx)
	if err != nil {
		if !already {
			sess.dropSubscription()
		}
		sess.replyErr(req, err)
		return
	}
	sess.replyState(req, st)
	if !already {
		go sess.pump(events, st.Seq, done)
	}
}

func (sess *session) unsubscribe(req protocol.Request) {
	sess.dropSubscription()
	sess.sendReply(protocol.Reply{ID: req.ID, OK: true})
}

// dropSubscription cancels the event stream and waits for the pump to
// exit so no event interleaves after an unsubscribe reply.
func (sess *session) dropSubscription() {
	sess.subMu.Lock()
	cancel := sess.subCancel
	done := sess.subDone
	sess.subCancel = nil
	sess.subDone = nil
	sess.subMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// pump forwards state events to the client until the subscription
// channel closes.
func (sess *session) pump(events <-chan engine.State, after uint64, done chan struct{}) {
	defer close(done)
	for st := range events {
		if st.Seq <= after {
			continue
		}
		ev := protocol.Event{Event: protocol.EventState, Seq: st.Seq, State: protocol.NewState(st)}
		if err := sess.writeJSON(ev); err != nil {
			sess.logger.Debug("event write failed", logging.Error(err))
			sess.close()
			return
		}
	}
	// The engine closes the channel on shutdown or after dropping a slow
	// subscriber. The stream cannot resume either way; disconnect so the
	// client reconnects and resubscribes for a fresh snapshot.
	sess.subMu.Lock()
	current := sess.subDone == done
	sess.subMu.Unlock()
	if current {
		sess.close()
	}
}
