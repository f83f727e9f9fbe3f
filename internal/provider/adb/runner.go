package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/ratelimit"

	"github.com/LumeraProtocol/arprov/pkg/logtrace"
)

var (
	ErrNoDevice     = errors.New("adb: no device attached")
	ErrUnauthorized = errors.New("adb: device unauthorized")
	ErrOffline      = errors.New("adb: device offline")
)

// Runner executes adb with the given arguments and returns its output.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs the adb binary. Invocations are rate limited so a retry
// loop cannot flood the adb server.
type ExecRunner struct {
	path    string
	serial  string
	limiter ratelimit.Limiter
}

// NewExecRunner returns a runner for the adb binary at path. serial selects
// the target device; empty means the only attached device.
func NewExecRunner(path, serial string, perSecond int) *ExecRunner {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &ExecRunner{
		path:    path,
		serial:  serial,
		limiter: ratelimit.New(perSecond, ratelimit.WithoutSlack),
	}
}

func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}

	full := args
	if r.serial != "" {
		full = append([]string{"-s", r.serial}, args...)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.path, full...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logtrace.Debug(ctx, "running adb", logtrace.Fields{
		logtrace.FieldModule: "adb",
		"args":               strings.Join(full, " "),
	})

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if derr := deviceError(stderr.String()); derr != nil {
			return "", derr
		}
		return "", fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// wait blocks for a rate limiter slot or until ctx is done. Take has no
// context, so an abandoned wait still consumes its slot.
func (r *ExecRunner) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		r.limiter.Take()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deviceError maps adb's device-state messages to sentinel errors.
func deviceError(msg string) error {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "no devices/emulators found"), strings.Contains(msg, "device '") && strings.Contains(msg, "not found"):
		return ErrNoDevice
	case strings.Contains(msg, "unauthorized"):
		return ErrUnauthorized
	case strings.Contains(msg, "offline"):
		return ErrOffline
	}
	return nil
}
