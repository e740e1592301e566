package daemon

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/jj1bdx/erldoc/internal/config"
)

// Spawn starts the "daemon" subcommand of the running binary in a session of
// its own. The child's stderr is appended to the daemon log, so a crash before
// the daemon installs its log handler still leaves a trace.
func Spawn() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding executable path: %w", err)
	}

	logPath := config.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening daemon log: %w", err)
	}
	// The child holds its own descriptor once started.
	defer logFile.Close()

	cmd := daemonCommand(exe, logFile)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	slog.Debug("spawned daemon", "pid", cmd.Process.Pid, "log", logPath)
	return cmd.Process.Release()
}

func daemonCommand(exe string, stderr io.Writer) *exec.Cmd {
	cmd := exec.Command(exe, "daemon")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stderr = stderr
	return cmd
}
