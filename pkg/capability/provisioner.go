package capability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/LumeraProtocol/arprov/pkg/event"
	"github.com/LumeraProtocol/arprov/pkg/logtrace"
	"github.com/LumeraProtocol/arprov/pkg/task"
	"github.com/LumeraProtocol/arprov/pkg/utils"
)

const (
	logModule    = "capability"
	sessionScope = "capability.session"
)

// Result is the outcome of one Evaluate call.
type Result struct {
	Session  SessionState `json:"session"`
	Decision Decision     `json:"decision"`
	// InstallErr is set when RequestInstallOnPrompt is enabled and the
	// provider could not start the install flow. It wraps
	// ErrInstallRequestFailed; the decision stays PromptInstall.
	InstallErr error `json:"-"`
}

// AsyncResult is delivered by EvaluateAsync.
type AsyncResult struct {
	Result *Result
	Err    error
}

// Provisioner drives sessions through query, classification, retry and
// decision. One Provisioner can serve many sessions; each session admits a
// single operation at a time.
type Provisioner struct {
	provider Provider
	cfg      Config
	policy   Policy
	tracker  task.Tracker
	bus      *event.Bus
}

// Option customises a Provisioner.
type Option func(*Provisioner)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(policy Policy) Option {
	return func(p *Provisioner) { p.policy = policy }
}

// WithEventBus publishes attempts, decisions and install failures on bus.
func WithEventBus(bus *event.Bus) Option {
	return func(p *Provisioner) { p.bus = bus }
}

// WithTracker shares an in-flight tracker between provisioners.
func WithTracker(tr task.Tracker) Option {
	return func(p *Provisioner) { p.tracker = tr }
}

// NewProvisioner validates cfg and returns a Provisioner. Configuration
// problems are reported as ErrInvalidConfig before any query is issued.
func NewProvisioner(provider Provider, cfg Config, opts ...Option) (*Provisioner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: provider is required", ErrInvalidConfig)
	}

	p := &Provisioner{
		provider: provider,
		cfg:      cfg,
		policy:   DefaultPolicy(),
		tracker:  task.New(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if v := p.policy.MinRuntimeVersion; v != "" {
		if _, err := utils.ParseVersion(v); err != nil {
			return nil, fmt.Errorf("%w: min_runtime_version %q: %v", ErrInvalidConfig, v, err)
		}
	}
	return p, nil
}

// Evaluate is the one-shot form: it validates cfg, creates a fresh session
// and evaluates it.
func Evaluate(ctx context.Context, provider Provider, cfg Config, opts ...Option) (*Result, error) {
	p, err := NewProvisioner(provider, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return p.Evaluate(ctx, NewSession())
}

// Config returns the provisioner configuration.
func (p *Provisioner) Config() Config { return p.cfg }

// Running returns the ids of sessions with an operation in flight.
func (p *Provisioner) Running() []string {
	return p.tracker.Snapshot()[sessionScope]
}

// EvaluateAsync runs Evaluate on its own goroutine. The channel receives
// exactly one value and is then closed.
func (p *Provisioner) EvaluateAsync(ctx context.Context, s *Session) <-chan AsyncResult {
	out := make(chan AsyncResult, 1)
	go func() {
		defer close(out)
		res, err := p.Evaluate(ctx, s)
		out <- AsyncResult{Result: res, Err: err}
	}()
	return out
}

// Evaluate runs one evaluation round for s and returns its decision.
//
// Query failures never surface as errors: they become StatusUnknown and,
// once MaxAttempts is reached, DecisionRetry. The returned error is
// ErrEvaluationInFlight, ErrNilSession, or ctx.Err() after cancellation, in
// which case the session decision is left unset.
func (p *Provisioner) Evaluate(ctx context.Context, s *Session) (*Result, error) {
	if s == nil {
		return nil, ErrNilSession
	}
	ctx = logtrace.CtxWithOrigin(ctx, "evaluate")
	fields := logtrace.Fields{logtrace.FieldModule: logModule, logtrace.FieldSessionID: s.ID()}

	h, err := task.StartUnique(ctx, p.tracker, sessionScope, s.ID())
	if err != nil {
		logtrace.Warn(ctx, "rejecting concurrent evaluation", fields)
		return nil, ErrEvaluationInFlight
	}
	defer h.End(ctx)

	if d := s.decisionNow(); d.Terminal() {
		logtrace.Debug(ctx, "session already settled", logtrace.WithFields(fields, logtrace.Fields{
			logtrace.FieldDecision: d.String(),
		}))
		return &Result{Session: s.State(), Decision: d}, nil
	}
	if err := ctx.Err(); err != nil {
		return p.cancelled(ctx, s, err)
	}

	s.beginRound()
	logtrace.Info(ctx, "evaluating AR capability", logtrace.WithFields(fields, logtrace.Fields{
		logtrace.FieldMaxAttempts: p.cfg.MaxAttempts,
	}))

	op := func() error {
		raw, qerr := p.queryOnce(ctx)
		if cerr := ctx.Err(); cerr != nil && qerr != nil {
			return backoff.Permanent(cerr)
		}

		status := StatusUnknown
		var version string
		if qerr == nil {
			status = Classify(raw, p.policy)
			version = raw.RuntimeVersion
			if status == StatusUnknown {
				qerr = fmt.Errorf("inconclusive availability %q", raw.Availability)
			}
		}
		attempt := s.recordQuery(status, version, qerr)

		p.publish(event.QueryAttempt, s, map[event.EventDataKey]interface{}{
			event.KeyAttempt:     attempt,
			event.KeyMaxAttempts: p.cfg.MaxAttempts,
			event.KeyStatus:      string(status),
		})
		logtrace.Debug(ctx, "capability query finished", logtrace.WithFields(fields, logtrace.Fields{
			logtrace.FieldAttempt: attempt,
			logtrace.FieldStatus:  status.String(),
		}))

		if status == StatusUnknown {
			if cerr := ctx.Err(); cerr != nil {
				return backoff.Permanent(cerr)
			}
			return qerr
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		st := s.State()
		logtrace.Warn(ctx, "capability query inconclusive, backing off", logtrace.WithFields(fields, logtrace.Fields{
			logtrace.FieldAttempt: st.Attempts,
			logtrace.FieldBackoff: wait.String(),
			logtrace.FieldError:   err.Error(),
		}))
		p.publish(event.QueryFailed, s, map[event.EventDataKey]interface{}{
			event.KeyAttempt: st.Attempts,
			event.KeyBackoff: wait,
			event.KeyError:   err.Error(),
		})
	}

	// A definitive answer recorded before cancellation still settles the round.
	retryErr := backoff.RetryNotify(op, p.newBackOff(ctx), notify)
	if cerr := ctx.Err(); cerr != nil && retryErr != nil {
		return p.cancelled(ctx, s, cerr)
	}
	if retryErr != nil {
		logtrace.Warn(ctx, "attempt budget exhausted without a definitive answer", logtrace.WithFields(fields, logtrace.Fields{
			logtrace.FieldError: retryErr.Error(),
		}))
	}

	decision := s.settle(p.cfg.AutoPromptInstall)
	res := &Result{Decision: decision}

	if decision == DecisionPromptInstall && p.cfg.RequestInstallOnPrompt {
		if ierr := p.requestInstall(ctx, s); ierr != nil {
			res.InstallErr = ierr
		}
	}

	res.Session = s.State()
	logtrace.Info(ctx, "capability decision reached", logtrace.WithFields(fields, logtrace.Fields{
		logtrace.FieldStatus:         res.Session.Status.String(),
		logtrace.FieldDecision:       decision.String(),
		logtrace.FieldAttempt:        res.Session.Attempts,
		logtrace.FieldRuntimeVersion: res.Session.RuntimeVersion,
	}))
	p.publish(event.ProvisionDecided, s, map[event.EventDataKey]interface{}{
		event.KeyDecision:       string(decision),
		event.KeyStatus:         string(res.Session.Status),
		event.KeyAttempt:        res.Session.Attempts,
		event.KeyInstallWanted:  res.Session.InstallRequested,
		event.KeyRuntimeVersion: res.Session.RuntimeVersion,
	})
	return res, nil
}

// RequestInstall asks the provider to start the install / update flow for a
// session whose last decision was PromptInstall. The provider call is bounded
// by QueryTimeout. Provider failures are returned as *InstallRequestError.
func (p *Provisioner) RequestInstall(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrNilSession
	}
	ctx = logtrace.CtxWithOrigin(ctx, "install")

	h, err := task.StartUnique(ctx, p.tracker, sessionScope, s.ID())
	if err != nil {
		return ErrEvaluationInFlight
	}
	defer h.End(ctx)

	if !s.isInstallRequested() {
		return ErrInstallNotRequested
	}
	return p.requestInstall(ctx, s)
}

func (p *Provisioner) requestInstall(ctx context.Context, s *Session) error {
	fields := logtrace.Fields{logtrace.FieldModule: logModule, logtrace.FieldSessionID: s.ID()}

	logtrace.Info(ctx, "requesting AR runtime install", fields)
	p.publish(event.InstallRequested, s, nil)

	ictx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	defer cancel()

	if err := p.provider.RequestInstall(ictx); err != nil {
		ierr := &InstallRequestError{SessionID: s.ID(), Err: err}
		logtrace.Error(ctx, "AR runtime install request failed", logtrace.WithFields(fields, logtrace.Fields{
			logtrace.FieldError: err.Error(),
		}))
		p.publish(event.InstallFailed, s, map[event.EventDataKey]interface{}{
			event.KeyError: err.Error(),
		})
		return ierr
	}
	return nil
}

// queryOnce runs a single capability query bounded by QueryTimeout. The
// provider runs on its own goroutine so one that ignores ctx still times out.
func (p *Provisioner) queryOnce(ctx context.Context) (*RawResult, error) {
	qctx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	defer cancel()

	type reply struct {
		raw *RawResult
		err error
	}
	ch := make(chan reply, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("%w: provider panicked: %v", ErrQueryFailed, r)}
			}
		}()
		raw, err := p.provider.QueryCapability(qctx)
		ch <- reply{raw: raw, err: err}
	}()

	select {
	case r := <-ch:
		switch {
		case r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, fmt.Errorf("%w after %s: %v", ErrQueryTimeout, p.cfg.QueryTimeout, r.err)
		case r.err != nil:
			if errors.Is(r.err, ErrQueryFailed) {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, r.err)
		case r.raw == nil:
			return nil, fmt.Errorf("%w: provider returned no result", ErrQueryFailed)
		}
		return r.raw, nil
	case <-qctx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %s", ErrQueryTimeout, p.cfg.QueryTimeout)
	}
}

func (p *Provisioner) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.RetryBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.cfg.MaxBackoff
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.cfg.MaxAttempts-1)), ctx)
}

func (p *Provisioner) cancelled(ctx context.Context, s *Session, err error) (*Result, error) {
	s.abandon(err)
	logtrace.Info(ctx, "capability evaluation cancelled", logtrace.Fields{
		logtrace.FieldModule:    logModule,
		logtrace.FieldSessionID: s.ID(),
		logtrace.FieldError:     err.Error(),
	})
	p.publish(event.ProvisionCancelled, s, map[event.EventDataKey]interface{}{
		event.KeyError: err.Error(),
	})
	return &Result{Session: s.State(), Decision: DecisionNone}, err
}

func (p *Provisioner) publish(t event.EventType, s *Session, data map[event.EventDataKey]interface{}) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(event.NewEvent(t, s.ID(), data))
}
