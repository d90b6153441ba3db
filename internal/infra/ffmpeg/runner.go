package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/vmerge/internal/log"
	"github.com/ManuGH/vmerge/internal/metrics"
	"github.com/ManuGH/vmerge/internal/procgroup"
)

// ErrTimeout is returned by Run when the context deadline expired before the
// process exited. The process group has been terminated by then.
var ErrTimeout = errors.New("process timed out")

const (
	defaultKillGrace = 5 * time.Second
	defaultTailBytes = 8192
)

// ExitError reports a process that ran and exited unsuccessfully.
type ExitError struct {
	Tool   string
	Err    error
	Stderr string // tail of stderr
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Result describes a finished process.
type Result struct {
	Stdout  []byte
	Stderr  string // tail of stderr
	Elapsed time.Duration
}

// Runner executes one external media tool. Each Run starts the binary in
// its own process group so cancellation reaps the whole tree.
type Runner struct {
	Bin       string
	Tool      string // metrics/log label, defaults to the binary base name
	KillGrace time.Duration
	TailBytes int
	Logger    zerolog.Logger
}

// NewRunner returns a Runner for bin. An empty bin defaults to "ffmpeg".
func NewRunner(bin string, logger zerolog.Logger) *Runner {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Runner{
		Bin:       bin,
		Tool:      toolName(bin),
		KillGrace: defaultKillGrace,
		TailBytes: defaultTailBytes,
		Logger:    logger,
	}
}

// Run starts the binary with args and waits for it. Stdout is collected in
// full (ffprobe JSON is small); stderr keeps only the tail.
//
// When ctx ends first the process group is sent SIGTERM and, after
// KillGrace, SIGKILL. The returned error is ErrTimeout for an expired
// deadline and ctx.Err() for cancellation. A non-zero exit yields *ExitError.
func (r *Runner) Run(ctx context.Context, args ...string) (Result, error) {
	tool := r.Tool
	if tool == "" {
		tool = toolName(r.Bin)
	}
	logger := xglog.WithContext(ctx, r.Logger)

	var stdout bytes.Buffer
	stderr := NewTailBuffer(r.TailBytes)

	// #nosec G204 -- binary comes from operator config; args are built internally
	cmd := exec.Command(r.Bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	procgroup.Set(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.IncProcessRun(tool, "start_failed")
		return Result{}, fmt.Errorf("start %s: %w", tool, err)
	}

	logger.Debug().
		Str(xglog.FieldEvent, "process.started").
		Str(xglog.FieldTool, tool).
		Int("pid", cmd.Process.Pid).
		Strs("args", args).
		Msg("external process started")

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		grace := r.KillGrace
		if grace <= 0 {
			grace = defaultKillGrace
		}
		_ = procgroup.Terminate(cmd, waitCh, grace)

		res := Result{Stdout: stdout.Bytes(), Stderr: stderr.String(), Elapsed: time.Since(start)}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.IncProcessRun(tool, "timeout")
			logger.Warn().
				Str(xglog.FieldEvent, "process.timeout").
				Str(xglog.FieldTool, tool).
				Dur("elapsed", res.Elapsed).
				Msg("external process exceeded its deadline, process group terminated")
			return res, ErrTimeout
		}
		metrics.IncProcessRun(tool, "canceled")
		return res, ctx.Err()
	}

	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.String(), Elapsed: time.Since(start)}
	if waitErr != nil {
		metrics.IncProcessRun(tool, "exit_nonzero")
		return res, &ExitError{Tool: tool, Err: waitErr, Stderr: res.Stderr}
	}

	metrics.IncProcessRun(tool, "ok")
	logger.Debug().
		Str(xglog.FieldEvent, "process.exited").
		Str(xglog.FieldTool, tool).
		Dur("elapsed", res.Elapsed).
		Msg("external process finished")
	return res, nil
}

func toolName(bin string) string {
	if i := strings.LastIndexAny(bin, `/\`); i >= 0 {
		bin = bin[i+1:]
	}
	return strings.TrimSuffix(bin, ".exe")
}
