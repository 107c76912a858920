package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newShellRunner(t *testing.T, timeout time.Duration) *Runner {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cfg := DefaultConfig()
	cfg.Interpreter = "sh"
	cfg.FileName = "main.sh"
	cfg.Timeout = timeout
	return New(cfg)
}

func TestRun_CapturesOutput(t *testing.T) {
	r := newShellRunner(t, 5*time.Second)

	res, err := r.Run(context.Background(), "echo hello\r\necho oops >&2\r\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stdout != "hello\n" || res.Stderr != "oops\n" || res.ExitCode != 0 || res.TimedOut {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_NonZeroExitIsAResult(t *testing.T) {
	r := newShellRunner(t, 5*time.Second)

	res, err := r.Run(context.Background(), "echo failing >&2\nexit 3\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 3 || !strings.Contains(res.Stderr, "failing") {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_Timeout(t *testing.T) {
	r := newShellRunner(t, 200*time.Millisecond)

	start := time.Now()
	res, err := r.Run(context.Background(), "exec sleep 5\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut || res.ExitCode != -1 {
		t.Errorf("result = %+v, want timed out", res)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timed-out run took %v", elapsed)
	}
}

func TestRun_RunsInScratchDirectory(t *testing.T) {
	r := newShellRunner(t, 5*time.Second)

	res, err := r.Run(context.Background(), "pwd\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	dir := strings.TrimSpace(res.Stdout)
	if !strings.Contains(filepath.Base(dir), "classroom-run-") {
		t.Errorf("ran in %q", dir)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("run directory %q not removed", dir)
	}
}

func TestRun_TruncatesOutput(t *testing.T) {
	r := newShellRunner(t, 5*time.Second)
	r.cfg.MaxOutputBytes = 4

	res, err := r.Run(context.Background(), "echo 123456789\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stdout != "1234" || !res.Truncated {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_RejectsBadInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCodeBytes = 8
	r := New(cfg)

	if _, err := r.Run(context.Background(), " \r\n "); !errors.Is(err, ErrEmptyCode) {
		t.Errorf("empty code = %v", err)
	}
	if _, err := r.Run(context.Background(), "print('too long')"); !errors.Is(err, ErrCodeTooLarge) {
		t.Errorf("large code = %v", err)
	}
}

func TestRun_MissingInterpreter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interpreter = "no-such-interpreter-for-tests"
	if _, err := New(cfg).Run(context.Background(), "x"); err == nil {
		t.Error("expected an error for a missing interpreter")
	}
}
