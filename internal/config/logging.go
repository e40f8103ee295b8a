package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// NewLogger builds the process logger. Records are JSON on stdout and carry
// the environment; with LogDir set they are also appended to a per-run file
// in that directory, and the returned closer closes it.
func NewLogger(cfg *Config) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: logLevel(cfg)}

	var sink io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(nil)

	if cfg.LogDir != "" {
		f, err := openRunLog(cfg.LogDir, cfg.Environment, cfg.LogMaxFiles)
		if err != nil {
			return nil, nil, err
		}
		sink = io.MultiWriter(os.Stdout, f)
		closer = f
	}

	logger := slog.New(slog.NewJSONHandler(sink, opts)).With("env", cfg.Environment)
	return logger, closer, nil
}

func logLevel(cfg *Config) slog.Level {
	if cfg.Environment == "dev" || cfg.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// openRunLog creates specboard-<env>-<timestamp>.log in dir and prunes the
// directory down to keep files.
func openRunLog(dir, env string, keep int) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := fmt.Sprintf("specboard-%s-%s.log", env, time.Now().UTC().Format("20060102T150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	// Pruning failures don't stop logging
	if err := pruneLogs(dir, keep); err != nil {
		fmt.Fprintf(os.Stderr, "warning: prune logs in %s: %v\n", dir, err)
	}
	return f, nil
}

// pruneLogs deletes the oldest specboard-*.log files in dir until at most
// keep remain. Age is taken from the modification time.
func pruneLogs(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type logFile struct {
		path    string
		modTime time.Time
	}
	var logs []logFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "specboard-") || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		logs = append(logs, logFile{path: filepath.Join(dir, e.Name()), modTime: info.ModTime()})
	}
	if len(logs) <= keep {
		return nil
	}

	slices.SortFunc(logs, func(a, b logFile) int { return a.modTime.Compare(b.modTime) })
	for _, l := range logs[:len(logs)-keep] {
		if err := os.Remove(l.path); err != nil {
			return fmt.Errorf("remove %s: %w", l.path, err)
		}
	}
	return nil
}
