package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"glow/internal/config"
	"glow/internal/control"
	"glow/internal/preflight"
	"glow/internal/protocol"
)

const pollInterval = 200 * time.Millisecond

// ErrDaemonNotRunning indicates no glowd process answers for this config.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	Listen     string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// ResolveDaemonExecutable locates glowd, preferring a binary next to the
// current executable over a PATH lookup.
func ResolveDaemonExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "glowd")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("glowd")
	if err != nil {
		return "", fmt.Errorf("locate glowd executable: %w", err)
	}
	return path, nil
}

// Launch starts a detached glowd process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	var args []string
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if listen := strings.TrimSpace(opts.Listen); listen != "" {
		args = append(args, "--listen", listen)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient polls the gateway until it accepts a connection.
func WaitForClient(ctx context.Context, url string, timeout time.Duration) (*control.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := dialOnce(ctx, url)
		if err == nil {
			return client, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches glowd unless a daemon already answers on the
// gateway, and waits for the gateway to come up after a launch.
func EnsureStarted(ctx context.Context, url, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if client, err := dialOnce(ctx, url); err == nil {
		_ = client.Close()
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	client, err := WaitForClient(ctx, url, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	_ = client.Close()
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// StopAndTerminate sends SIGTERM to the daemon named by the pid file and
// escalates to SIGKILL when it is still alive after gracePeriod. The
// daemon removes its own pid file on a graceful exit; a forced kill
// cleans up the pid and lock files here.
func StopAndTerminate(ctx context.Context, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	if cfg == nil {
		return StopResult{}, errors.New("configuration not available")
	}

	pidPath := cfg.PIDFilePath()
	pid, err := ReadPID(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to stop current process (pid %d)", pid)
	}
	if !processAlive(pid) {
		// Stale pid file from a crashed daemon.
		_ = os.Remove(pidPath)
		return StopResult{}, ErrDaemonNotRunning
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return StopResult{}, fmt.Errorf("signal daemon pid %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	if err := WaitForShutdown(ctx, pid, gracePeriod); err == nil {
		return result, nil
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return result, fmt.Errorf("kill daemon pid %d: %w", pid, err)
	}
	_ = os.Remove(pidPath)
	_ = os.Remove(cfg.LockPath())
	result.ForcedKill = true
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(ctx context.Context, url string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGrace, startWait time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(ctx, cfg, stopGrace)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(ctx, url, executablePath, opts, startWait)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// WaitForShutdown waits for the process to exit.
func WaitForShutdown(ctx context.Context, pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return fmt.Errorf("daemon pid %d did not exit within %s", pid, timeout)
}

// ReadPID parses the daemon pid file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %q holds no valid pid", path)
	}
	return pid, nil
}

// StatusSnapshot aggregates everything "glow status" renders.
type StatusSnapshot struct {
	Running bool
	PID     int
	// State is nil when the daemon is down.
	State  *protocol.State
	Checks []preflight.Result

	GatewayURL   string
	DatabasePath string
	LogPath      string
}

// BuildStatusSnapshot collects daemon state over the gateway plus local
// preflight results, so status works with or without a running daemon.
// An empty url falls back to the configured gateway address.
func BuildStatusSnapshot(ctx context.Context, url string, cfg *config.Config) (*StatusSnapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}

	if url == "" {
		url = cfg.GatewayURL()
	}
	snap := &StatusSnapshot{
		GatewayURL:   url,
		DatabasePath: cfg.DatabasePath(),
		LogPath:      cfg.LogFilePath(),
	}

	if pid, err := ReadPID(cfg.PIDFilePath()); err == nil {
		snap.PID = pid
	}

	if client, err := dialOnce(ctx, snap.GatewayURL); err == nil {
		st, stateErr := client.State(ctx)
		_ = client.Close()
		if stateErr == nil {
			snap.Running = true
			snap.State = st
		}
	}

	snap.Checks = preflight.RunAll(ctx, cfg)
	return snap, nil
}

func dialOnce(ctx context.Context, url string) (*control.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return control.Dial(dialCtx, url)
}

// processAlive reports whether a signal could be delivered to pid.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
