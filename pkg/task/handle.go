package task

import (
	"context"
	"errors"
	"sync"

	"github.com/LumeraProtocol/arprov/pkg/logtrace"
)

var ErrAlreadyRunning = errors.New("task already running")

// Handle pairs a successful TryStart with exactly one End.
type Handle struct {
	tr    Tracker
	scope string
	id    string
	once  sync.Once
}

// StartUnique starts tracking id under scope and returns ErrAlreadyRunning
// if the pair is already in flight.
func StartUnique(ctx context.Context, tr Tracker, scope, id string) (*Handle, error) {
	if tr == nil || scope == "" || id == "" {
		return &Handle{}, nil
	}
	if !tr.TryStart(scope, id) {
		logtrace.Debug(ctx, "task: rejected duplicate", logtrace.Fields{
			logtrace.FieldModule: scope,
			logtrace.FieldTaskID: id,
		})
		return nil, ErrAlreadyRunning
	}

	logtrace.Debug(ctx, "task: started", logtrace.Fields{
		logtrace.FieldModule: scope,
		logtrace.FieldTaskID: id,
	})
	return &Handle{tr: tr, scope: scope, id: id}, nil
}

// End stops tracking the task. Safe to call multiple times.
func (h *Handle) End(ctx context.Context) {
	if h == nil || h.tr == nil {
		return
	}
	h.once.Do(func() {
		h.tr.End(h.scope, h.id)
		logtrace.Debug(ctx, "task: ended", logtrace.Fields{
			logtrace.FieldModule: h.scope,
			logtrace.FieldTaskID: h.id,
		})
	})
}
