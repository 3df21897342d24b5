package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"glow/internal/animation"
	"glow/internal/logging"
	"glow/internal/plugin"
	"glow/internal/stripe"
	"glow/internal/transport"
)

const (
	commandQueueDepth = 16
	eventBuffer       = 64
	maxSendAttempts   = 3
	// Retry backoff when the transport reports no rate limit.
	fallbackRetryBackoff = 50 * time.Millisecond
	defaultMaxFPS        = 60.0
)

// Notifier receives operator-facing alerts for failures the engine cannot
// recover from. Implementations must not block for long; they are called
// from the render loop.
type Notifier interface {
	EngineStopped(ctx context.Context, reason string)
	TransportFailure(ctx context.Context, transportName string, err error)
}

// Options configures a new Engine.
type Options struct {
	// Pixels is the stripe length every frame must match.
	Pixels int
	// MaxFPS caps the render rate regardless of animation preference.
	// Zero means the built-in default of 60.
	MaxFPS float64
	// Brightness is the initial output scale in [0, 1].
	Brightness float64
	// Registry resolves animation and transport names. The registry must
	// not be mutated after the engine starts.
	Registry *plugin.Registry
	Logger   *slog.Logger
	// Notifier may be nil.
	Notifier Notifier
}

// Engine owns the render loop. All state transitions go through the
// command queue and are applied by the loop goroutine between frames.
type Engine struct {
	registry *plugin.Registry
	logger   *slog.Logger
	notifier Notifier
	geometry stripe.Geometry
	frameCap time.Duration

	commands   chan command
	events     chan State
	done       chan struct{}
	dispatcher *dispatcher

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Fields below are owned by the run goroutine.
	status      Status
	anim        animation.Animation
	animName    string
	animParams  plugin.Params
	tr          transport.Transport
	trName      string
	trCaps      transport.Capabilities
	brightness  float64
	seq         uint64
	framesSent  uint64
	lastFrame   stripe.Frame
	lastErr     string
	lastAdvance time.Time
	target      time.Time
	stash       []command
}

// New validates opts and returns a stopped engine. Call Start to begin
// processing commands.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, errors.New("engine: registry is required")
	}
	if opts.Pixels < 1 {
		return nil, fmt.Errorf("engine: pixel count %d is below 1", opts.Pixels)
	}
	if err := validBrightness(opts.Brightness); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	maxFPS := opts.MaxFPS
	if maxFPS <= 0 {
		maxFPS = defaultMaxFPS
	}
	logger := logging.NewComponentLogger(opts.Logger, "engine")
	events := make(chan State, eventBuffer)
	e := &Engine{
		registry:   opts.Registry,
		logger:     logger,
		notifier:   opts.Notifier,
		geometry:   stripe.Geometry{Pixels: opts.Pixels},
		frameCap:   rateInterval(maxFPS),
		commands:   make(chan command, commandQueueDepth),
		events:     events,
		done:       make(chan struct{}),
		status:     StatusStopped,
		brightness: opts.Brightness,
	}
	e.dispatcher = newDispatcher(events, logger)
	return e, nil
}

// Start launches the render loop and event dispatcher. A shut down engine
// cannot be started again.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errors.New("engine already running")
	}
	select {
	case <-e.done:
		return errors.New("engine already shut down")
	default:
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.wg.Add(2)
	go e.run(runCtx)
	go e.dispatcher.run(&e.wg)
	e.logger.Info("engine started",
		logging.Int("pixels", e.geometry.Pixels),
		logging.Duration("frame_cap", e.frameCap))
	return nil
}

// Shutdown stops the loop, blacks out the stripe, closes the transport,
// and refuses all queued commands with ErrClosed. It blocks until both
// goroutines have exited and is safe to call more than once.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()
	cancel()
	e.wg.Wait()
	e.logger.Info("engine shut down")
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()
	for {
		// Commands stashed during a send retry predate anything still
		// in the queue, so they are applied first.
		if len(e.stash) > 0 {
			cmd := e.stash[0]
			e.stash = e.stash[1:]
			e.apply(ctx, cmd)
			continue
		}
		paced := e.status == StatusRunning && e.anim != nil
		var interval time.Duration
		if paced {
			interval = e.effectiveInterval()
			if interval == animation.OneShot {
				paced = false
			}
		}
		if !paced {
			select {
			case <-ctx.Done():
				e.teardown()
				return
			case cmd := <-e.commands:
				e.apply(ctx, cmd)
			}
			continue
		}
		now := time.Now()
		if e.target.IsZero() {
			e.target = now
		}
		wait := e.target.Sub(now)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.teardown()
			return
		case cmd := <-e.commands:
			timer.Stop()
			e.apply(ctx, cmd)
		case <-timer.C:
			e.renderAndSend(ctx, interval)
		}
	}
}

func (e *Engine) teardown() {
	if e.status != StatusStopped {
		e.stopRendering()
		e.publish()
	} else {
		e.blackout()
	}
	if e.tr != nil {
		if err := e.tr.Close(); err != nil {
			logging.WarnWithContext(e.logger, "transport close failed", "transport_close_failed",
				logging.Error(err),
				logging.String(logging.FieldTransport, e.trName),
				logging.String(logging.FieldImpact, "hardware connection may linger"))
		}
		e.tr = nil
	}
	for _, cmd := range e.stash {
		cmd.reply <- commandResult{err: ErrClosed}
	}
	e.stash = nil
	for {
		select {
		case cmd := <-e.commands:
			cmd.reply <- commandResult{err: ErrClosed}
		default:
			close(e.events)
			close(e.done)
			return
		}
	}
}

func (e *Engine) apply(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdSelectAnimation:
		e.applySelect(ctx, cmd)
	case cmdSetParameters:
		e.applySetParameters(ctx, cmd)
	case cmdPause:
		e.applyPause(cmd)
	case cmdResume:
		e.applyResume(cmd)
	case cmdStop:
		e.applyStop(cmd)
	case cmdBindTransport:
		e.applyBindTransport(ctx, cmd)
	case cmdSetBrightness:
		e.applySetBrightness(ctx, cmd)
	case cmdApplyScene:
		e.applyApplyScene(ctx, cmd)
	case cmdGetState:
		cmd.reply <- commandResult{state: e.snapshot()}
	default:
		e.reject(cmd, fmt.Errorf("%w: unknown command kind %d", ErrCommandRejected, cmd.kind))
	}
}

func (e *Engine) reject(cmd command, err error) {
	cmd.reply <- commandResult{err: err}
	e.logger.Debug("command rejected",
		logging.String(logging.FieldOp, cmd.kind.String()),
		logging.Error(err))
}

// startAnimation instantiates and swaps in the named animation. The
// caller publishes the resulting state and triggers the first render for
// one-shot animations.
func (e *Engine) startAnimation(name string, params plugin.Params) (oneShot bool, err error) {
	if e.tr == nil {
		return false, fmt.Errorf("%w: no transport bound", ErrCommandRejected)
	}
	instance, normalized, err := e.registry.Instantiate(plugin.KindAnimation, name, params)
	if err != nil {
		return false, err
	}
	anim, ok := instance.(animation.Animation)
	if !ok {
		return false, fmt.Errorf("plugin %q does not implement the animation contract", name)
	}
	e.anim = anim
	e.animName = name
	e.animParams = normalized
	e.status = StatusRunning
	e.lastErr = ""
	e.lastAdvance = time.Time{}
	e.target = time.Now()
	return anim.PreferredInterval() == animation.OneShot, nil
}

func (e *Engine) applySelect(ctx context.Context, cmd command) {
	oneShot, err := e.startAnimation(cmd.name, cmd.params)
	if err != nil {
		e.reject(cmd, err)
		return
	}
	st := e.publish()
	cmd.reply <- commandResult{state: st}
	e.logger.Info("animation selected",
		logging.String(logging.FieldAnimation, cmd.name),
		logging.Uint64(logging.FieldSeq, st.Seq))
	if oneShot {
		e.renderOnce(ctx)
	}
}

func (e *Engine) applySetParameters(ctx context.Context, cmd command) {
	if e.anim == nil || e.status == StatusStopped {
		e.reject(cmd, fmt.Errorf("%w: no active animation", ErrCommandRejected))
		return
	}
	desc, err := e.registry.Lookup(plugin.KindAnimation, e.animName)
	if err != nil {
		e.reject(cmd, err)
		return
	}
	delta, err := desc.Schema.ValidateDelta(cmd.params)
	if err != nil {
		e.reject(cmd, err)
		return
	}
	merged := e.animParams.Merged(delta)
	if configurable, ok := e.anim.(animation.Configurable); ok {
		if err := configurable.Configure(merged); err != nil {
			e.reject(cmd, err)
			return
		}
	} else {
		// No live reconfigure: swap in a fresh instance with the merged
		// parameters. Progression restarts for such animations.
		instance, _, err := e.registry.Instantiate(plugin.KindAnimation, e.animName, merged)
		if err != nil {
			e.reject(cmd, err)
			return
		}
		anim, ok := instance.(animation.Animation)
		if !ok {
			e.reject(cmd, fmt.Errorf("plugin %q does not implement the animation contract", e.animName))
			return
		}
		e.anim = anim
	}
	e.animParams = merged
	st := e.publish()
	cmd.reply <- commandResult{state: st}
	e.logger.Info("parameters updated",
		logging.String(logging.FieldAnimation, e.animName),
		logging.Uint64(logging.FieldSeq, st.Seq))
	if e.status == StatusRunning && e.anim.PreferredInterval() == animation.OneShot {
		e.renderOnce(ctx)
	}
}

func (e *Engine) applyPause(cmd command) {
	if e.status != StatusRunning {
		e.reject(cmd, fmt.Errorf("%w: pause requires a running animation", ErrCommandRejected))
		return
	}
	e.status = StatusPaused
	st := e.publish()
	cmd.reply <- commandResult{state: st}
	e.logger.Info("animation paused",
		logging.String(logging.FieldAnimation, e.animName),
		logging.Uint64(logging.FieldSeq, st.Seq))
}

func (e *Engine) applyResume(cmd command) {
	if e.status != StatusPaused {
		e.reject(cmd, fmt.Errorf("%w: resume requires a paused animation", ErrCommandRejected))
		return
	}
	e.status = StatusRunning
	e.lastAdvance = time.Now()
	e.target = time.Now()
	st := e.publish()
	cmd.reply <- commandResult{state: st}
	e.logger.Info("animation resumed",
		logging.String(logging.FieldAnimation, e.animName),
		logging.Uint64(logging.FieldSeq, st.Seq))
}

func (e *Engine) applyStop(cmd command) {
	if e.status == StatusStopped {
		cmd.reply <- commandResult{state: e.snapshot()}
		return
	}
	e.stopRendering()
	st := e.publish()
	cmd.reply <- commandResult{state: st}
	e.logger.Info("engine stopped", logging.Uint64(logging.FieldSeq, st.Seq))
}

func (e *Engine) applyBindTransport(ctx context.Context, cmd command) {
	instance, _, err := e.registry.Instantiate(plugin.KindTransport, cmd.name, cmd.params)
	if err != nil {
		e.reject(cmd, err)
		return
	}
	tr, ok := instance.(transport.Transport)
	if !ok {
		e.reject(cmd, fmt.Errorf("plugin %q does not implement the transport contract", cmd.name))
		return
	}
	caps := tr.Capabilities()
	if caps.MaxPixels > 0 && e.geometry.Pixels > caps.MaxPixels {
		_ = tr.Close()
		e.reject(cmd, fmt.Errorf("stripe of %d pixels exceeds %q limit of %d: %w",
			e.geometry.Pixels, cmd.name, caps.MaxPixels, transport.ErrFrameTooLarge))
		return
	}
	if e.tr != nil {
		if err := e.tr.Close(); err != nil {
			logging.WarnWithContext(e.logger, "closing previous transport failed", "transport_close_failed",
				logging.Error(err),
				logging.String(logging.FieldTransport, e.trName),
				logging.String(logging.FieldImpact, "previous hardware connection may linger"))
		}
	}
	e.tr = tr
	e.trName = cmd.name
	e.trCaps = caps
	e.lastErr = ""
	st := e.publish()
	cmd.reply <- commandResult{state: st}
	e.logger.Info("transport bound",
		logging.String(logging.FieldTransport, cmd.name),
		logging.Uint64(logging.FieldSeq, st.Seq))
	if e.shouldRepaint() {
		e.repaint(ctx)
	}
}

func (e *Engine) applySetBrightness(ctx context.Context, cmd command) {
	if err := validBrightness(cmd.brightness); err != nil {
		e.reject(cmd, err)
		return
	}
	e.brightness = cmd.brightness
	st := e.publish()
	cmd.reply <- commandResult{state: st}
	e.logger.Info("brightness set",
		logging.Float64("brightness", cmd.brightness),
		logging.Uint64(logging.FieldSeq, st.Seq))
	if e.shouldRepaint() {
		e.repaint(ctx)
	}
}

func (e *Engine) applyApplyScene(ctx context.Context, cmd command) {
	if err := validBrightness(cmd.brightness); err != nil {
		e.reject(cmd, err)
		return
	}
	oneShot, err := e.startAnimation(cmd.name, cmd.params)
	if err != nil {
		e.reject(cmd, err)
		return
	}
	e.brightness = cmd.brightness
	st := e.publish()
	cmd.reply <- commandResult{state: st}
	e.logger.Info("scene applied",
		logging.String(logging.FieldAnimation, cmd.name),
		logging.Float64("brightness", cmd.brightness),
		logging.Uint64(logging.FieldSeq, st.Seq))
	if oneShot {
		e.renderOnce(ctx)
	}
}

// shouldRepaint reports whether a brightness change must be made visible
// right away because no periodic render will pick it up.
func (e *Engine) shouldRepaint() bool {
	if e.lastFrame == nil || e.tr == nil {
		return false
	}
	switch e.status {
	case StatusPaused:
		return true
	case StatusRunning:
		return e.anim != nil && e.anim.PreferredInterval() == animation.OneShot
	}
	return false
}

func (e *Engine) renderAndSend(ctx context.Context, interval time.Duration) {
	frame, err := e.renderFrame()
	if err != nil {
		e.forceStop(ctx, err)
		return
	}
	if e.deliver(ctx, frame) != sendOK {
		return
	}
	e.framesSent++
	// Pace against the original schedule so a slow render does not creep
	// the frame rate. A miss of more than one full period re-anchors the
	// schedule to the actual send instead of bursting to catch up.
	next := e.target.Add(interval)
	if now := time.Now(); now.Sub(e.target) > interval {
		next = now.Add(interval)
	}
	e.target = next
}

// renderOnce renders and sends a single frame outside the paced loop,
// for one-shot animations after selection or a parameter change.
func (e *Engine) renderOnce(ctx context.Context) {
	frame, err := e.renderFrame()
	if err != nil {
		e.forceStop(ctx, err)
		return
	}
	if e.deliver(ctx, frame) == sendOK {
		e.framesSent++
	}
}

// repaint resends the last rendered frame, after a brightness change on an
// idle stripe or a transport swap.
func (e *Engine) repaint(ctx context.Context) {
	if e.lastFrame == nil || e.tr == nil {
		return
	}
	if e.deliver(ctx, e.lastFrame) == sendOK {
		e.framesSent++
	}
}

func (e *Engine) renderFrame() (stripe.Frame, error) {
	now := time.Now()
	var elapsed time.Duration
	if !e.lastAdvance.IsZero() {
		elapsed = now.Sub(e.lastAdvance)
	}
	e.lastAdvance = now
	frame := e.anim.Advance(elapsed, e.geometry)
	if len(frame) != e.geometry.Pixels {
		return nil, fmt.Errorf("animation %q produced %d pixels for a %d pixel stripe: %w",
			e.animName, len(frame), e.geometry.Pixels, ErrFrameSizeMismatch)
	}
	e.lastFrame = frame
	return frame, nil
}

type sendOutcome int

const (
	sendOK sendOutcome = iota
	// sendFailed means retries ran out or the error was fatal; the
	// engine has already been force stopped.
	sendFailed
	// sendAborted means a stop command or shutdown preempted the retry.
	sendAborted
)

type backoffOutcome int

const (
	backoffElapsed backoffOutcome = iota
	backoffStopped
	backoffShutdown
)

// deliver sends frame through the bound transport, scaled by the current
// brightness. Transient failures are retried up to maxSendAttempts with a
// transport-paced backoff; a stop command arriving during backoff aborts
// the retry while other commands are stashed for the loop to apply next.
func (e *Engine) deliver(ctx context.Context, frame stripe.Frame) sendOutcome {
	payload := frame.Scaled(e.brightness)
	var lastErr error
	attempts := 0
	for attempts < maxSendAttempts {
		attempts++
		err := e.tr.Send(payload)
		if err == nil {
			if lastErr != nil {
				e.logger.Info("transport recovered",
					logging.String(logging.FieldTransport, e.trName),
					logging.Int("attempt", attempts))
			}
			return sendOK
		}
		lastErr = err
		if errors.Is(err, transport.ErrFrameTooLarge) || attempts == maxSendAttempts {
			break
		}
		logging.WarnWithContext(e.logger, "frame send failed; retrying", "send_retry",
			logging.Error(err),
			logging.String(logging.FieldTransport, e.trName),
			logging.Int("attempt", attempts),
			logging.String(logging.FieldErrorHint, "check transport connectivity"),
			logging.String(logging.FieldImpact, "frame delayed; engine stops if retries run out"))
		if e.backoff(ctx) != backoffElapsed {
			return sendAborted
		}
	}
	e.forceStop(ctx, fmt.Errorf("frame delivery failed after %d attempts: %w", attempts, lastErr))
	return sendFailed
}

// backoff waits one retry interval while still honoring the command
// queue: a stop is applied immediately and aborts the retry, anything
// else is stashed in arrival order.
func (e *Engine) backoff(ctx context.Context) backoffOutcome {
	timer := time.NewTimer(e.retryBackoff())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return backoffShutdown
		case cmd := <-e.commands:
			if cmd.kind == cmdStop {
				e.applyStop(cmd)
				return backoffStopped
			}
			e.stash = append(e.stash, cmd)
		case <-timer.C:
			return backoffElapsed
		}
	}
}

func (e *Engine) forceStop(ctx context.Context, cause error) {
	trName := e.trName
	e.stopRendering()
	e.lastErr = cause.Error()
	logging.ErrorWithContext(e.logger, "engine force stopped", "engine_forced_stop",
		logging.Error(cause),
		logging.String(logging.FieldTransport, trName),
		logging.String(logging.FieldErrorHint, "check the transport, then select an animation to restart"))
	if e.notifier != nil {
		if errors.Is(cause, transport.ErrUnavailable) || errors.Is(cause, transport.ErrFrameTooLarge) {
			e.notifier.TransportFailure(ctx, trName, cause)
		} else {
			e.notifier.EngineStopped(ctx, cause.Error())
		}
	}
	e.publish()
}

// stopRendering discards the animation instance and blacks out the
// stripe. The transport binding and the last selected name survive for
// display and a later restart.
func (e *Engine) stopRendering() {
	e.status = StatusStopped
	e.anim = nil
	e.lastFrame = nil
	e.target = time.Time{}
	e.lastAdvance = time.Time{}
	e.blackout()
}

func (e *Engine) blackout() {
	if e.tr == nil {
		return
	}
	if err := e.tr.Send(stripe.NewFrame(e.geometry)); err != nil {
		e.logger.Debug("blackout send failed", logging.Error(err))
	}
}

// effectiveInterval is the pacing interval for the active animation: its
// preference clamped by the transport rate limit and the FPS ceiling.
func (e *Engine) effectiveInterval() time.Duration {
	pref := e.anim.PreferredInterval()
	if pref == animation.OneShot {
		return pref
	}
	interval := e.frameCap
	if pref > interval {
		interval = pref
	}
	if e.trCaps.MaxRate > 0 {
		if trMin := rateInterval(e.trCaps.MaxRate); trMin > interval {
			interval = trMin
		}
	}
	return interval
}

func (e *Engine) retryBackoff() time.Duration {
	if e.trCaps.MaxRate > 0 {
		return rateInterval(e.trCaps.MaxRate)
	}
	return fallbackRetryBackoff
}

func rateInterval(rate float64) time.Duration {
	return time.Duration(float64(time.Second) / rate)
}

func validBrightness(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return &plugin.ParameterError{Parameter: "brightness", Reason: fmt.Sprintf("%v is outside [0, 1]", v)}
	}
	return nil
}

func (e *Engine) snapshot() State {
	var interval time.Duration
	if e.status == StatusRunning && e.anim != nil {
		if iv := e.effectiveInterval(); iv != animation.OneShot {
			interval = iv
		}
	}
	return State{
		Seq:        e.seq,
		Status:     e.status,
		Animation:  e.animName,
		Params:     e.animParams.Clone(),
		Transport:  e.trName,
		Brightness: e.brightness,
		Interval:   interval,
		Pixels:     e.geometry.Pixels,
		FramesSent: e.framesSent,
		LastError:  e.lastErr,
		UpdatedAt:  time.Now().UTC(),
	}
}

// publish assigns the next sequence number and hands the snapshot to the
// dispatcher. The loop never blocks on a full event buffer; the event is
// dropped instead.
func (e *Engine) publish() State {
	e.seq++
	st := e.snapshot()
	select {
	case e.events <- st:
	default:
		logging.WarnWithContext(e.logger, "event buffer full; dropping state event", "event_dropped",
			logging.Uint64(logging.FieldSeq, st.Seq),
			logging.String(logging.FieldImpact, "subscribers miss one state change"))
	}
	return st
}
