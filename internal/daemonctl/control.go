package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"kiosk/internal/api"
)

// ErrDaemonNotRunning indicates no live daemon process was found.
var ErrDaemonNotRunning = errors.New("daemon is not running")

const pollInterval = 200 * time.Millisecond

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// StopResult captures how the daemon was stopped.
type StopResult struct {
	PID    int
	Forced bool
}

// Launch starts a detached `kiosk serve` process in its own session.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"serve"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append([]string{"--config", cfg}, args...)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForHealthy polls the health endpoint until it answers or timeout
// elapses.
func WaitForHealthy(ctx context.Context, client *api.Client, timeout time.Duration) (*api.HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for {
		health, err := client.Health(ctx)
		if err == nil {
			return health, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
		case <-time.After(pollInterval):
		}
	}
}

// ReadPID returns the process id recorded at path. A missing file yields
// ErrDaemonNotRunning.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrDaemonNotRunning
		}
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s is corrupt", path)
	}
	return pid, nil
}

// Stop sends SIGTERM to the daemon recorded in pidPath and waits up to
// grace for it to exit, then sends SIGKILL. A stale pid file is removed.
func Stop(ctx context.Context, pidPath string, grace time.Duration) (StopResult, error) {
	pid, err := ReadPID(pidPath)
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid}
	if !processAlive(pid) {
		_ = os.Remove(pidPath)
		return result, ErrDaemonNotRunning
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("signal daemon: %w", err)
	}
	if waitForExit(ctx, pid, grace) {
		return result, nil
	}

	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("kill daemon: %w", err)
	}
	result.Forced = true
	if !waitForExit(ctx, pid, grace) {
		return result, fmt.Errorf("daemon process %d did not exit", pid)
	}
	// A killed daemon cannot remove its own pid file.
	_ = os.Remove(pidPath)
	return result, nil
}

func waitForExit(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !processAlive(pid) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval / 4):
		}
	}
}

func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
