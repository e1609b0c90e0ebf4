package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// StartDetached spawns executable with args in a new session.
// The child has no stdin/stdout/stderr and outlives the caller.
func StartDetached(executable string, args ...string) (int, error) {
	cmd := exec.Command(executable, args...)

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", executable, err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, err
	}
	return pid, nil
}

// StartSelf re-executes the running binary as a detached tracker.
// Hidden form: cttrack run --config <path>
func StartSelf(configPath string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, err
	}
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return StartDetached(executable, args...)
}
