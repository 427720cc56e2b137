// Package dispatch resolves a handler's command template against an event
// and executes the result as a shell subprocess, enforcing the handler's
// timeout and capturing output. Execution is deliberately via a shell so
// operators can compose pipelines in the command string, with a
// process-group kill on timeout so a shell pipeline's children don't
// outlive the deadline.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/metarelay/metarelay/internal/errs"
	"github.com/metarelay/metarelay/internal/types"
)

const maxOutputBytes = 10_000

// Dispatcher executes handler commands.
type Dispatcher struct{}

// New builds a Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch resolves handler.Command against event, runs it as a shell
// command line, and returns the outcome. An error is returned only for a
// DispatchError-class failure (the process could not be started, or an
// unexpected OS-level error occurred) — a failing, timed-out, or
// template-broken handler is reported via the returned HandlerResult's
// Status, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, handler types.HandlerConfig, event *types.Event) (types.HandlerResult, error) {
	result := types.HandlerResult{HandlerName: handler.Name}

	resolved := func() (s string, panicked error) {
		defer func() {
			if r := recover(); r != nil {
				panicked = fmt.Errorf("%v", r)
			}
		}()
		return ResolveTemplate(handler.Command, event), nil
	}
	command, err := resolved()
	if err != nil {
		msg := fmt.Sprintf("Template resolution failed: %v", err)
		result.Status = types.StatusError
		result.Output = &msg
		return result, nil
	}

	timeout := time.Duration(handler.Timeout) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.SysProcAttr = newProcAttr()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start).Seconds()
	result.DurationSeconds = round2(duration)

	if runCtx.Err() == context.DeadlineExceeded {
		killProcessGroup(cmd)
		msg := fmt.Sprintf("Command timed out after %ds", handler.Timeout)
		result.Status = types.StatusTimeout
		result.Output = &msg
		return result, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(runErr, &exitErr); ok {
			code := exitErr.ExitCode()
			result.ExitCode = &code
			result.Status = types.StatusFailure
			result.Output = combineOutput(stdout.String(), stderr.String())
			return result, nil
		}
		// Process never started or an unexpected OS-level failure occurred.
		return types.HandlerResult{}, errs.NewDispatchError("failed to execute handler command", runErr)
	}

	code := 0
	result.ExitCode = &code
	result.Status = types.StatusSuccess
	result.Output = combineOutput(stdout.String(), stderr.String())
	return result, nil
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func combineOutput(stdout, stderr string) *string {
	var combined string
	switch {
	case stdout != "" && stderr != "":
		combined = stdout + "\n--- stderr ---\n" + stderr
	case stdout != "":
		combined = stdout
	case stderr != "":
		combined = stderr
	default:
		return nil
	}
	if len(combined) > maxOutputBytes {
		combined = combined[:maxOutputBytes]
	}
	return &combined
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
