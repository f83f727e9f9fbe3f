package capability_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/LumeraProtocol/arprov/pkg/capability"
	"github.com/LumeraProtocol/arprov/pkg/capability/mocks"
	"github.com/LumeraProtocol/arprov/pkg/event"
)

func fastConfig() capability.Config {
	cfg := capability.DefaultConfig()
	cfg.QueryTimeout = 50 * time.Millisecond
	cfg.RetryBackoff = time.Millisecond
	cfg.MaxBackoff = 4 * time.Millisecond
	return cfg
}

func raw(availability capability.Availability, version string) *capability.RawResult {
	return &capability.RawResult{
		Availability:   availability,
		RuntimeVersion: version,
		Device:         capability.DeviceInfo{Model: "Pixel 8", APILevel: 34, ABIs: []string{"arm64-v8a"}},
	}
}

func newProvisioner(t *testing.T, provider capability.Provider, cfg capability.Config, opts ...capability.Option) *capability.Provisioner {
	t.Helper()
	p, err := capability.NewProvisioner(provider, cfg, opts...)
	require.NoError(t, err)
	return p
}

func TestEvaluateSupportedFirstTry(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedInstalled, "1.42.0"), nil).Times(1)

	res, err := capability.Evaluate(context.Background(), provider, fastConfig())
	require.NoError(t, err)

	assert.Equal(t, capability.DecisionProceed, res.Decision)
	assert.Equal(t, capability.StatusSupported, res.Session.Status)
	assert.Equal(t, 1, res.Session.Attempts)
	assert.Equal(t, "1.42.0", res.Session.RuntimeVersion)
	assert.False(t, res.Session.InstallRequested)
}

func TestEvaluateRetriesTimeoutsThenDisables(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	blockUntilDeadline := func(ctx context.Context) (*capability.RawResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	gomock.InOrder(
		provider.EXPECT().QueryCapability(gomock.Any()).DoAndReturn(blockUntilDeadline),
		provider.EXPECT().QueryCapability(gomock.Any()).DoAndReturn(blockUntilDeadline),
		provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilityUnsupported, ""), nil),
	)

	cfg := fastConfig()
	cfg.QueryTimeout = 20 * time.Millisecond

	res, err := capability.Evaluate(context.Background(), provider, cfg)
	require.NoError(t, err)

	assert.Equal(t, capability.DecisionDisable, res.Decision)
	assert.Equal(t, capability.StatusUnsupported, res.Session.Status)
	assert.Equal(t, 3, res.Session.Attempts)
	assert.Empty(t, res.Session.LastError)
}

func TestEvaluateNotInstalledPromptsInstall(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedNotInstalled, ""), nil)

	res, err := capability.Evaluate(context.Background(), provider, fastConfig())
	require.NoError(t, err)

	assert.Equal(t, capability.DecisionPromptInstall, res.Decision)
	assert.Equal(t, capability.StatusSupportedNotInstalled, res.Session.Status)
	assert.True(t, res.Session.InstallRequested)
	assert.NoError(t, res.InstallErr)
}

func TestEvaluateOutdatedWithoutAutoPromptDisables(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedInstalled, "1.30.0"), nil)

	cfg := fastConfig()
	cfg.AutoPromptInstall = false

	res, err := capability.Evaluate(context.Background(), provider, cfg)
	require.NoError(t, err)

	assert.Equal(t, capability.StatusSupportedOutdated, res.Session.Status)
	assert.Equal(t, capability.DecisionDisable, res.Decision)
	assert.False(t, res.Session.InstallRequested)
}

func TestEvaluateInvalidConfigIssuesNoQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	cfg := fastConfig()
	cfg.MaxAttempts = 0

	res, err := capability.Evaluate(context.Background(), provider, cfg)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, capability.ErrInvalidConfig)
}

func TestNewProvisionerRejectsBadInputs(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	_, err := capability.NewProvisioner(nil, fastConfig())
	assert.ErrorIs(t, err, capability.ErrInvalidConfig)

	_, err = capability.NewProvisioner(provider, fastConfig(), capability.WithPolicy(capability.Policy{MinRuntimeVersion: "latest"}))
	assert.ErrorIs(t, err, capability.ErrInvalidConfig)
}

func TestEvaluateExhaustsBudgetWithRetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilityUnknownChecking, ""), nil).Times(3)

	res, err := capability.Evaluate(context.Background(), provider, fastConfig())
	require.NoError(t, err)

	assert.Equal(t, capability.DecisionRetry, res.Decision)
	assert.Equal(t, capability.StatusUnknown, res.Session.Status)
	assert.Equal(t, 3, res.Session.Attempts)
	assert.Contains(t, res.Session.LastError, "UNKNOWN_CHECKING")
}

func TestEvaluateProviderErrorsCountAsUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(nil, errors.New("binder died")).Times(2)

	cfg := fastConfig()
	cfg.MaxAttempts = 2

	res, err := capability.Evaluate(context.Background(), provider, cfg)
	require.NoError(t, err)

	assert.Equal(t, capability.DecisionRetry, res.Decision)
	assert.Equal(t, 2, res.Session.Attempts)
	assert.Contains(t, res.Session.LastError, "binder died")
}

func TestEvaluateNilResultCountsAsUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(nil, nil)

	cfg := fastConfig()
	cfg.MaxAttempts = 1

	res, err := capability.Evaluate(context.Background(), provider, cfg)
	require.NoError(t, err)
	assert.Equal(t, capability.DecisionRetry, res.Decision)
	assert.Equal(t, 1, res.Session.Attempts)
}

func TestEvaluateTerminalSessionIsIdempotent(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  *capability.RawResult
		want capability.Decision
	}{
		{"proceed", raw(capability.AvailabilitySupportedInstalled, "1.45.0"), capability.DecisionProceed},
		{"disable", raw(capability.AvailabilityUnsupported, ""), capability.DecisionDisable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			provider := mocks.NewMockProvider(ctrl)
			provider.EXPECT().QueryCapability(gomock.Any()).Return(tc.raw, nil).Times(1)

			p := newProvisioner(t, provider, fastConfig())
			s := capability.NewSession()

			first, err := p.Evaluate(context.Background(), s)
			require.NoError(t, err)
			second, err := p.Evaluate(context.Background(), s)
			require.NoError(t, err)

			assert.Equal(t, tc.want, first.Decision)
			assert.Equal(t, first.Decision, second.Decision)
			assert.Equal(t, 1, second.Session.TotalQueries)
		})
	}
}

func TestEvaluateRetryStartsFreshRound(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	gomock.InOrder(
		provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilityUnknownTimedOut, ""), nil).Times(2),
		provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedInstalled, "1.41.0"), nil),
	)

	cfg := fastConfig()
	cfg.MaxAttempts = 2
	p := newProvisioner(t, provider, cfg)
	s := capability.NewSession()

	res, err := p.Evaluate(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, capability.DecisionRetry, res.Decision)

	res, err = p.Evaluate(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, capability.DecisionProceed, res.Decision)
	assert.Equal(t, 1, res.Session.Attempts)
	assert.Equal(t, 3, res.Session.TotalQueries)
	assert.Empty(t, res.Session.LastError)
}

func TestPromptInstallThenReevaluate(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	gomock.InOrder(
		provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedApkTooOld, "1.20.0"), nil),
		provider.EXPECT().RequestInstall(gomock.Any()).Return(nil),
		provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedInstalled, "1.46.0"), nil),
	)

	p := newProvisioner(t, provider, fastConfig())
	s := capability.NewSession()

	res, err := p.Evaluate(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, capability.DecisionPromptInstall, res.Decision)

	require.NoError(t, p.RequestInstall(context.Background(), s))

	res, err = p.Evaluate(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, capability.DecisionProceed, res.Decision)
	assert.Equal(t, "1.46.0", res.Session.RuntimeVersion)
	assert.False(t, res.Session.InstallRequested)
}

func TestRequestInstallFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedNotInstalled, ""), nil)
	provider.EXPECT().RequestInstall(gomock.Any()).Return(errors.New("play store missing"))

	bus := event.NewBus(4)
	var (
		mu     sync.Mutex
		failed []event.Event
	)
	bus.Subscribe(event.InstallFailed, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, e)
	})

	p := newProvisioner(t, provider, fastConfig(), capability.WithEventBus(bus))
	s := capability.NewSession()

	_, err := p.Evaluate(context.Background(), s)
	require.NoError(t, err)

	err = p.RequestInstall(context.Background(), s)
	require.Error(t, err)
	assert.ErrorIs(t, err, capability.ErrInstallRequestFailed)

	var ierr *capability.InstallRequestError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, s.ID(), ierr.SessionID)

	bus.WaitForHandlers()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failed, 1)
	assert.Equal(t, "play store missing", failed[0].Data[event.KeyError])
}

func TestRequestInstallWithoutPrompt(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedInstalled, "1.50.0"), nil)

	p := newProvisioner(t, provider, fastConfig())
	s := capability.NewSession()

	assert.ErrorIs(t, p.RequestInstall(context.Background(), s), capability.ErrInstallNotRequested)

	_, err := p.Evaluate(context.Background(), s)
	require.NoError(t, err)
	assert.ErrorIs(t, p.RequestInstall(context.Background(), s), capability.ErrInstallNotRequested)
}

func TestRequestInstallOnPromptReportsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedNotInstalled, ""), nil)
	provider.EXPECT().RequestInstall(gomock.Any()).Return(errors.New("no channel"))

	cfg := fastConfig()
	cfg.RequestInstallOnPrompt = true

	res, err := capability.Evaluate(context.Background(), provider, cfg)
	require.NoError(t, err)

	assert.Equal(t, capability.DecisionPromptInstall, res.Decision)
	assert.ErrorIs(t, res.InstallErr, capability.ErrInstallRequestFailed)
}

func TestEvaluateRejectsConcurrentCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})
	provider.EXPECT().QueryCapability(gomock.Any()).DoAndReturn(func(ctx context.Context) (*capability.RawResult, error) {
		close(entered)
		<-release
		return raw(capability.AvailabilitySupportedInstalled, "1.41.0"), nil
	}).Times(1)

	cfg := fastConfig()
	cfg.QueryTimeout = 5 * time.Second
	p := newProvisioner(t, provider, cfg)
	s := capability.NewSession()

	done := p.EvaluateAsync(context.Background(), s)
	<-entered

	assert.Equal(t, []string{s.ID()}, p.Running())
	_, err := p.Evaluate(context.Background(), s)
	assert.ErrorIs(t, err, capability.ErrEvaluationInFlight)
	assert.ErrorIs(t, p.RequestInstall(context.Background(), s), capability.ErrEvaluationInFlight)

	close(release)
	out := <-done
	require.NoError(t, out.Err)
	assert.Equal(t, capability.DecisionProceed, out.Result.Decision)
	assert.Empty(t, p.Running())
}

func TestEvaluateCancelledDuringBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilityUnknownChecking, ""), nil).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := event.NewBus(4)
	bus.Subscribe(event.QueryFailed, func(event.Event) { cancel() })

	cfg := fastConfig()
	cfg.RetryBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	p := newProvisioner(t, provider, cfg, capability.WithEventBus(bus))
	s := capability.NewSession()

	res, err := p.Evaluate(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, capability.DecisionNone, res.Decision)
	assert.Equal(t, capability.DecisionNone, s.State().Decision)
	assert.Equal(t, 1, s.State().Attempts)
}

func TestEvaluateAlreadyCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := capability.Evaluate(ctx, provider, fastConfig())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Session.TotalQueries)
}

func TestEvaluateProviderIgnoringContextStillTimesOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	provider.EXPECT().QueryCapability(gomock.Any()).DoAndReturn(func(context.Context) (*capability.RawResult, error) {
		<-release
		return raw(capability.AvailabilitySupportedInstalled, "1.41.0"), nil
	})

	cfg := fastConfig()
	cfg.MaxAttempts = 1
	cfg.QueryTimeout = 20 * time.Millisecond

	start := time.Now()
	res, err := capability.Evaluate(context.Background(), provider, cfg)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, capability.DecisionRetry, res.Decision)
	assert.Contains(t, res.Session.LastError, "timed out")
}

func TestEvaluateProviderPanicCountsAsUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).DoAndReturn(func(context.Context) (*capability.RawResult, error) {
		panic("jni crash")
	})

	cfg := fastConfig()
	cfg.MaxAttempts = 1

	res, err := capability.Evaluate(context.Background(), provider, cfg)
	require.NoError(t, err)
	assert.Equal(t, capability.DecisionRetry, res.Decision)
	assert.Contains(t, res.Session.LastError, "jni crash")
}

func TestEvaluateNilSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProvisioner(t, mocks.NewMockProvider(ctrl), fastConfig())

	_, err := p.Evaluate(context.Background(), nil)
	assert.ErrorIs(t, err, capability.ErrNilSession)
	assert.ErrorIs(t, p.RequestInstall(context.Background(), nil), capability.ErrNilSession)
}

func TestEvaluatePublishesLifecycleEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	gomock.InOrder(
		provider.EXPECT().QueryCapability(gomock.Any()).Return(nil, errors.New("flaky")),
		provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedInstalled, "1.41.0"), nil),
	)

	bus := event.NewBus(4)
	var (
		mu    sync.Mutex
		seen  = map[event.EventType]int{}
		final event.Event
	)
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen[e.Type]++
		if e.Type == event.ProvisionDecided {
			final = e
		}
	})

	p := newProvisioner(t, provider, fastConfig(), capability.WithEventBus(bus))
	s := capability.NewSession()
	_, err := p.Evaluate(context.Background(), s)
	require.NoError(t, err)
	bus.WaitForHandlers()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, seen[event.QueryAttempt])
	assert.Equal(t, 1, seen[event.QueryFailed])
	assert.Equal(t, 1, seen[event.ProvisionDecided])
	assert.Equal(t, s.ID(), final.SessionID)
	assert.Equal(t, string(capability.DecisionProceed), final.Data[event.KeyDecision])
}

func TestEvaluateDecisionAlwaysInRange(t *testing.T) {
	availabilities := []capability.Availability{
		capability.AvailabilitySupportedInstalled,
		capability.AvailabilitySupportedApkTooOld,
		capability.AvailabilitySupportedNotInstalled,
		capability.AvailabilityUnsupported,
		capability.AvailabilityUnknownChecking,
		capability.AvailabilityUnknownTimedOut,
		capability.AvailabilityUnknownError,
	}
	valid := map[capability.Decision]bool{
		capability.DecisionProceed:       true,
		capability.DecisionPromptInstall: true,
		capability.DecisionDisable:       true,
		capability.DecisionRetry:         true,
	}

	for _, a := range availabilities {
		for _, autoPrompt := range []bool{true, false} {
			ctrl := gomock.NewController(t)
			provider := mocks.NewMockProvider(ctrl)
			provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(a, "1.0.0"), nil).AnyTimes()

			cfg := fastConfig()
			cfg.AutoPromptInstall = autoPrompt

			res, err := capability.Evaluate(context.Background(), provider, cfg)
			require.NoError(t, err)
			assert.True(t, valid[res.Decision], "availability=%s decision=%s", a, res.Decision)
			assert.LessOrEqual(t, res.Session.Attempts, cfg.MaxAttempts)
			if a == capability.AvailabilityUnsupported {
				assert.Equal(t, capability.DecisionDisable, res.Decision)
			}
			if res.Decision == capability.DecisionPromptInstall {
				assert.True(t, autoPrompt)
			}
		}
	}
}

func TestEvaluateCancelledDuringQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	provider.EXPECT().QueryCapability(gomock.Any()).DoAndReturn(func(context.Context) (*capability.RawResult, error) {
		cancel()
		<-release
		return raw(capability.AvailabilitySupportedInstalled, "1.41.0"), nil
	}).Times(1)

	cfg := fastConfig()
	cfg.QueryTimeout = time.Hour

	s := capability.NewSession()
	start := time.Now()
	res, err := newProvisioner(t, provider, cfg).Evaluate(ctx, s)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
	require.NotNil(t, res)
	assert.Equal(t, capability.DecisionNone, res.Decision)
	assert.Equal(t, capability.DecisionNone, s.State().Decision)
	assert.Equal(t, 0, s.State().Attempts)
}

func TestEvaluateKeepsAnswerWhenCancelledAfterQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedInstalled, "1.42.0"), nil).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := event.NewBus(4)
	bus.Subscribe(event.QueryAttempt, func(event.Event) { cancel() })

	p := newProvisioner(t, provider, fastConfig(), capability.WithEventBus(bus))
	s := capability.NewSession()

	res, err := p.Evaluate(ctx, s)
	bus.WaitForHandlers()

	require.NoError(t, err)
	assert.Equal(t, capability.DecisionProceed, res.Decision)
	assert.Equal(t, capability.DecisionProceed, s.State().Decision)
}

func TestRequestInstallIsBoundedByQueryTimeout(t *testing.T) {
	blockUntilDeadline := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	t.Run("on_prompt", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := mocks.NewMockProvider(ctrl)
		provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedNotInstalled, ""), nil)
		provider.EXPECT().RequestInstall(gomock.Any()).DoAndReturn(blockUntilDeadline)

		cfg := fastConfig()
		cfg.QueryTimeout = 20 * time.Millisecond
		cfg.RequestInstallOnPrompt = true

		start := time.Now()
		res, err := capability.Evaluate(context.Background(), provider, cfg)
		require.NoError(t, err)

		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Equal(t, capability.DecisionPromptInstall, res.Decision)
		assert.ErrorIs(t, res.InstallErr, capability.ErrInstallRequestFailed)
		assert.ErrorIs(t, res.InstallErr, context.DeadlineExceeded)
	})

	t.Run("explicit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := mocks.NewMockProvider(ctrl)
		provider.EXPECT().QueryCapability(gomock.Any()).Return(raw(capability.AvailabilitySupportedNotInstalled, ""), nil)
		provider.EXPECT().RequestInstall(gomock.Any()).DoAndReturn(blockUntilDeadline)

		cfg := fastConfig()
		cfg.QueryTimeout = 20 * time.Millisecond
		p := newProvisioner(t, provider, cfg)
		s := capability.NewSession()

		_, err := p.Evaluate(context.Background(), s)
		require.NoError(t, err)

		start := time.Now()
		err = p.RequestInstall(context.Background(), s)
		assert.Less(t, time.Since(start), 2*time.Second)

		var ierr *capability.InstallRequestError
		require.ErrorAs(t, err, &ierr)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
