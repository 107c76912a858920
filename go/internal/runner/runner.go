// Package runner executes a student's code with an interpreter in a scratch
// directory and captures what it prints.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// waitDelay bounds how long Run waits for output pipes after the process is killed
const waitDelay = 500 * time.Millisecond

// Config holds runner settings
type Config struct {
	Interpreter    string        // e.g. python3
	FileName       string        // name the code is written under
	Timeout        time.Duration // wall-clock limit per run
	MaxCodeBytes   int
	MaxOutputBytes int // per stream
}

// DefaultConfig returns default runner settings
func DefaultConfig() Config {
	return Config{
		Interpreter:    "python3",
		FileName:       "main.py",
		Timeout:        10 * time.Second,
		MaxCodeBytes:   64 << 10,
		MaxOutputBytes: 64 << 10,
	}
}

// Result is the outcome of one run
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	TimedOut  bool
	Truncated bool
	Duration  time.Duration
}

// Runner executes code. It is safe for concurrent use; every run gets its
// own directory.
type Runner struct {
	cfg Config
}

// New creates a runner
func New(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run writes code to a fresh directory and runs it with the interpreter. A
// non-zero exit or a timeout is reported in the Result, not as an error.
func (r *Runner) Run(ctx context.Context, code string) (*Result, error) {
	code = strings.ReplaceAll(code, "\r", "")
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}
	if r.cfg.MaxCodeBytes > 0 && len(code) > r.cfg.MaxCodeBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrCodeTooLarge, r.cfg.MaxCodeBytes)
	}

	dir, err := os.MkdirTemp("", "classroom-run-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, r.cfg.FileName)
	if err := os.WriteFile(file, []byte(code), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write code: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	stdout := &limitedBuffer{max: r.cfg.MaxOutputBytes}
	stderr := &limitedBuffer{max: r.cfg.MaxOutputBytes}
	cmd := exec.CommandContext(runCtx, r.cfg.Interpreter, r.cfg.FileName)
	cmd.Dir = dir
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + dir}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err = cmd.Run()
	res := &Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  time.Since(start),
	}

	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = -1
	case err != nil:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to run %s: %w", r.cfg.Interpreter, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	log.Debug().
		Int("exit_code", res.ExitCode).
		Bool("timed_out", res.TimedOut).
		Dur("duration", res.Duration).
		Msg("code run finished")
	return res, nil
}

// limitedBuffer keeps the first max bytes written and drops the rest.
type limitedBuffer struct {
	buf       strings.Builder
	max       int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := len(p)
	if b.max > 0 {
		room = b.max - b.buf.Len()
	}
	if room < len(p) {
		b.truncated = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
