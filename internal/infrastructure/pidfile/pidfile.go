// Package pidfile enforces the single-daemon-instance rule through a
// PID file. Two dispatchers sharing one database would double-assign
// orders, so the daemon refuses to start while a live PID holds the
// file.
package pidfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// killWait is how long KillExisting waits for a SIGTERM to land before
// escalating to SIGKILL.
const killWait = 5 * time.Second

// PIDFile guards a daemon instance through a file holding its PID.
type PIDFile struct {
	path string
}

// New creates a PIDFile manager for the given path.
func New(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Acquire claims the PID file. It fails when another live process holds
// it; stale files left by dead processes are cleaned up silently.
func (p *PIDFile) Acquire() error {
	if pid, ok := p.readPID(); ok {
		if isProcessRunning(pid) {
			return fmt.Errorf("daemon is already running (PID %d)", pid)
		}
		_ = os.Remove(p.path)
	}

	data := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(p.path, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Release removes the PID file. A missing file is not an error; crash
// recovery may already have cleaned it.
func (p *PIDFile) Release() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// KillExisting terminates the process named by the PID file, first
// politely with SIGTERM, then with SIGKILL once the wait expires.
func (p *PIDFile) KillExisting() error {
	pid, ok := p.readPID()
	if !ok {
		return fmt.Errorf("no valid PID file at %s", p.path)
	}
	if !isProcessRunning(pid) {
		_ = os.Remove(p.path)
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	deadline := time.Now().Add(killWait)
	for time.Now().Before(deadline) {
		if !isProcessRunning(pid) {
			_ = os.Remove(p.path)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := process.Kill(); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	_ = os.Remove(p.path)
	return nil
}

// readPID parses the stored PID. Unreadable or garbled files count as
// absent.
func (p *PIDFile) readPID() (int, bool) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		_ = os.Remove(p.path)
		return 0, false
	}
	return pid, true
}

// isProcessRunning probes a PID with signal 0. EPERM still means the
// process exists, just under another user.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if err == syscall.EPERM {
		return true
	}
	return false
}
