package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"glow/internal/engine"
	"glow/internal/logging"
	"glow/internal/plugin"
	"glow/internal/protocol"
	"glow/internal/scene"
)

const (
	logTailDefaultLimit = 100
	logTailMaxLimit     = 500
	// logTailWaitBudget bounds a wait=true fetch so a follower re-arms
	// periodically instead of parking a session goroutine indefinitely.
	logTailWaitBudget = 25 * time.Second
)

func (sess *session) dispatch(ctx context.Context, req protocol.Request) {
	sess.logger.Debug("request",
		logging.String(logging.FieldOp, req.Op),
		logging.String("request_id", req.ID))

	switch req.Op {
	case protocol.OpSelectAnimation:
		st, err := sess.server.engine.SelectAnimation(ctx, req.Name, plugin.Params(req.Params))
		sess.finish(req, st, err)
	case protocol.OpSetParameters:
		st, err := sess.server.engine.SetParameters(ctx, plugin.Params(req.Params))
		sess.finish(req, st, err)
	case protocol.OpPause:
		st, err := sess.server.engine.Pause(ctx)
		sess.finish(req, st, err)
	case protocol.OpResume:
		st, err := sess.server.engine.Resume(ctx)
		sess.finish(req, st, err)
	case protocol.OpStop:
		st, err := sess.server.engine.Stop(ctx)
		sess.finish(req, st, err)
	case protocol.OpBindTransport:
		st, err := sess.server.engine.BindTransport(ctx, req.Name, plugin.Params(req.Params))
		sess.finish(req, st, err)
	case protocol.OpSetBrightness:
		if req.Brightness == nil {
			sess.sendError(req, protocol.CodeBadRequest, "set_brightness requires a brightness value")
			return
		}
		st, err := sess.server.engine.SetBrightness(ctx, *req.Brightness)
		sess.finish(req, st, err)
	case protocol.OpGetState:
		st, err := sess.server.engine.State(ctx)
		sess.finish(req, st, err)
	case protocol.OpListPlugins:
		sess.listPlugins(req)
	case protocol.OpSubscribe:
		sess.subscribe(ctx, req)
	case protocol.OpUnsubscribe:
		sess.unsubscribe(req)
	case protocol.OpSceneList:
		sess.sceneList(ctx, req)
	case protocol.OpSceneSave:
		sess.sceneSave(ctx, req)
	case protocol.OpSceneDelete:
		sess.sceneDelete(ctx, req)
	case protocol.OpSceneRename:
		sess.sceneRename(ctx, req)
	case protocol.OpSceneActivate:
		sess.sceneActivate(ctx, req)
	case protocol.OpLogTail:
		sess.logTail(ctx, req)
	default:
		sess.sendError(req, protocol.CodeBadRequest, fmt.Sprintf("unknown op %q", req.Op))
	}
}

// finish sends the uniform command reply: the new state on success, the
// mapped wire error otherwise.
func (sess *session) finish(req protocol.Request, st engine.State, err error) {
	if err != nil {
		sess.replyErr(req, err)
		return
	}
	sess.replyState(req, st)
}

func (sess *session) replyState(req protocol.Request, st engine.State) {
	wire := protocol.NewState(st)
	sess.sendReply(protocol.Reply{ID: req.ID, OK: true, State: &wire})
}

func (sess *session) replyErr(req protocol.Request, err error) {
	sess.sendReply(protocol.Reply{ID: req.ID, Error: wireError(err)})
}

func (sess *session) listPlugins(req protocol.Request) {
	reg := sess.server.registry
	infos := protocol.NewPluginList(reg.Describe(plugin.KindAnimation))
	infos = append(infos, protocol.NewPluginList(reg.Describe(plugin.KindTransport))...)
	sess.sendReply(protocol.Reply{ID: req.ID, OK: true, Plugins: infos})
}

func (sess *session) sceneList(ctx context.Context, req protocol.Request) {
	scenes, err := sess.server.scenes.List(ctx)
	if err != nil {
		sess.replyErr(req, err)
		return
	}
	sess.sendReply(protocol.Reply{ID: req.ID, OK: true, Scenes: protocol.NewSceneList(scenes)})
}

// sceneSave captures what the engine is currently showing under the given
// name. Saving with nothing selected is rejected; a stopped engine still
// remembers its last animation, and that look is saveable.
func (sess *session) sceneSave(ctx context.Context, req protocol.Request) {
	if strings.TrimSpace(req.Name) == "" {
		sess.sendError(req, protocol.CodeBadRequest, "scene_save requires a name")
		return
	}
	st, err := sess.server.engine.State(ctx)
	if err != nil {
		sess.replyErr(req, err)
		return
	}
	if st.Animation == "" {
		sess.sendError(req, protocol.CodeCommandRejected, "no animation selected to save")
		return
	}
	saved, err := sess.server.scenes.Save(ctx, &scene.Scene{
		Name:       req.Name,
		Animation:  st.Animation,
		Params:     st.Params,
		Brightness: st.Brightness,
	})
	if err != nil {
		sess.replyErr(req, err)
		return
	}
	sess.logger.Info("scene saved",
		logging.String("scene", saved.Name),
		logging.String(logging.FieldAnimation, saved.Animation),
		logging.String(logging.FieldEventType, "scene_save"))
	sess.sendReply(protocol.Reply{
		ID:     req.ID,
		OK:     true,
		Scenes: []protocol.SceneInfo{protocol.NewSceneInfo(saved)},
	})
}

func (sess *session) sceneDelete(ctx context.Context, req protocol.Request) {
	if strings.TrimSpace(req.Name) == "" {
		sess.sendError(req, protocol.CodeBadRequest, "scene_delete requires a name")
		return
	}
	if err := sess.server.scenes.Delete(ctx, req.Name); err != nil {
		sess.replyErr(req, err)
		return
	}
	sess.logger.Info("scene deleted",
		logging.String("scene", req.Name),
		logging.String(logging.FieldEventType, "scene_delete"))
	sess.sendReply(protocol.Reply{ID: req.ID, OK: true})
}

func (sess *session) sceneRename(ctx context.Context, req protocol.Request) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.NewName) == "" {
		sess.sendError(req, protocol.CodeBadRequest, "scene_rename requires name and new_name")
		return
	}
	if err := sess.server.scenes.Rename(ctx, req.Name, req.NewName); err != nil {
		sess.replyErr(req, err)
		return
	}
	sess.logger.Info("scene renamed",
		logging.String("scene", req.Name),
		logging.String("new_name", req.NewName),
		logging.String(logging.FieldEventType, "scene_rename"))
	sess.sendReply(protocol.Reply{ID: req.ID, OK: true})
}

// sceneActivate resolves the stored preset and applies it as one atomic
// engine command, so subscribers see a single state event for the switch.
func (sess *session) sceneActivate(ctx context.Context, req protocol.Request) {
	sc, err := sess.server.scenes.Get(ctx, req.Name)
	if err != nil {
		sess.replyErr(req, err)
		return
	}
	st, err := sess.server.engine.ApplyScene(ctx, sc.Animation, sc.Params, sc.Brightness)
	if err != nil {
		sess.replyErr(req, err)
		return
	}
	sess.logger.Info("scene activated",
		logging.String("scene", sc.Name),
		logging.String(logging.FieldAnimation, sc.Animation),
		logging.String(logging.FieldEventType, "scene_activate"))
	sess.replyState(req, st)
}

func (sess *session) logTail(ctx context.Context, req protocol.Request) {
	hub := sess.server.logHub
	if hub == nil {
		sess.sendError(req, protocol.CodeCommandRejected, "log streaming is not enabled")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = logTailDefaultLimit
	}
	if limit > logTailMaxLimit {
		limit = logTailMaxLimit
	}
	fetchCtx := ctx
	if req.Wait {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, logTailWaitBudget)
		defer cancel()
	}
	lines, next, err := hub.Fetch(fetchCtx, req.Since, limit, req.Wait)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		sess.replyErr(req, err)
		return
	}
	// An expired wait is a normal empty poll; the client re-arms with
	// the returned cursor.
	sess.sendReply(protocol.Reply{ID: req.ID, OK: true, Logs: lines, NextSeq: next})
}
