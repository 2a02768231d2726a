package convert

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/BaSui01/extrudeflow/types"
	"go.uber.org/zap"
)

// maxLineBytes bounds a single streamed stdout line.
const maxLineBytes = 4 << 20

// waitDelay bounds how long Wait keeps copying output after the process
// exits or is killed.
const waitDelay = 5 * time.Second

// ToolHook observes every external tool invocation.
type ToolHook func(tool string, err error, elapsed time.Duration)

// runner executes external programs, optionally streaming stdout lines to
// the logger. A non-zero exit becomes a TOOL_FAILURE error; the captured
// output goes to the log only.
type runner struct {
	logger *zap.Logger
	hook   ToolHook
}

func (r runner) run(ctx context.Context, tool, path string, stream bool, args ...string) error {
	start := time.Now()
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = waitDelay

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	var wg sync.WaitGroup
	if stream {
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return r.fail(tool, err, start, "", "")
		}
		if err := cmd.Start(); err != nil {
			return r.fail(tool, err, start, "", "")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.stream(tool, io.TeeReader(pipe, &stdoutBuf))
		}()
	} else {
		cmd.Stdout = &stdoutBuf
		if err := cmd.Start(); err != nil {
			return r.fail(tool, err, start, "", "")
		}
	}

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		return r.fail(tool, err, start, stdoutBuf.String(), stderrBuf.String())
	}

	if r.hook != nil {
		r.hook(tool, nil, time.Since(start))
	}
	r.logger.Debug("tool finished", zap.String("tool", tool), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// stream logs src line by line and always drains it, so the child never
// blocks on a full pipe.
func (r runner) stream(tool string, src io.Reader) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	for scanner.Scan() {
		r.logger.Info(tool, zap.String("line", scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("stopped streaming tool output", zap.String("tool", tool), zap.Error(err))
	}
	_, _ = io.Copy(io.Discard, src)
}

func (r runner) fail(tool string, err error, start time.Time, stdout, stderr string) error {
	exitCode := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	r.logger.Error("tool failed",
		zap.String("tool", tool),
		zap.Int("exit_code", exitCode),
		zap.String("stdout", stdout),
		zap.String("stderr", stderr),
		zap.Error(err),
	)
	terr := types.ToolFailureError(tool, err)
	if r.hook != nil {
		r.hook(tool, terr, time.Since(start))
	}
	return terr
}
