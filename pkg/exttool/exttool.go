// Package exttool shells out to the external bioinformatics binaries the
// pipeline delegates to: multiple aligners, the phylip tools and phyml.
// Every invocation captures stdout, stderr and the exit status, runs
// under a wall-clock timeout, and converts failure into a ToolFailure
// scoped to the family being processed.
package exttool

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yumyai/phyloclust/logger"
	"github.com/yumyai/phyloclust/pkg/model"
)

// Runner executes external binaries in per-invocation scratch
// directories under Dir.
type Runner struct {
	Dir     string
	Timeout time.Duration
}

func NewRunner(dir string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Runner{Dir: dir, Timeout: timeout}
}

// Scratch creates a fresh working directory for one invocation.
func (r *Runner) Scratch() (string, error) {
	dir := filepath.Join(r.Dir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Run executes one binary and returns its captured stdout. A non-zero
// exit, a missing binary or a timeout all come back as *model.ToolFailure
// with the full stdout/stderr/exit payload.
func (r *Runner) Run(ctx context.Context, workdir, name string, args []string, stdin []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workdir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	start := time.Now()
	err := cmd.Run()
	logger.Debug("external tool finished",
		zap.String("tool", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))

	if err == nil {
		return out.String(), nil
	}
	tf := &model.ToolFailure{
		Tool:     name,
		Args:     args,
		ExitCode: -1,
		Stdout:   out.String(),
		Stderr:   errb.String(),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		tf.ExitCode = exitErr.ExitCode()
	}
	return out.String(), tf
}
