package capability

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one provisioning attempt for the lifetime of an application
// launch. Its fields are owned by the Provisioner; callers read them through
// State.
type Session struct {
	id string

	mu               sync.Mutex
	status           Status
	attempts         int
	totalQueries     int
	installRequested bool
	decision         Decision
	runtimeVersion   string
	lastErr          error
	updatedAt        time.Time
}

// SessionState is an immutable copy of a Session.
type SessionState struct {
	ID               string    `json:"id"`
	Status           Status    `json:"status"`
	Attempts         int       `json:"attempts"`
	TotalQueries     int       `json:"total_queries"`
	InstallRequested bool      `json:"install_requested"`
	Decision         Decision  `json:"decision"`
	RuntimeVersion   string    `json:"runtime_version,omitempty"`
	LastError        string    `json:"last_error,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewSession creates a session in the Unknown state.
func NewSession() *Session {
	return &Session{
		id:        uuid.NewString(),
		status:    StatusUnknown,
		updatedAt: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionState{
		ID:               s.id,
		Status:           s.status,
		Attempts:         s.attempts,
		TotalQueries:     s.totalQueries,
		InstallRequested: s.installRequested,
		Decision:         s.decision,
		RuntimeVersion:   s.runtimeVersion,
		UpdatedAt:        s.updatedAt,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Session) decisionNow() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decision
}

// beginRound resets the per-round fields. Status is kept: it only changes
// through recordQuery.
func (s *Session) beginRound() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = 0
	s.installRequested = false
	s.decision = DecisionNone
	s.lastErr = nil
	s.updatedAt = time.Now()
}

// recordQuery stores the outcome of one capability query and returns the
// attempt number it consumed.
func (s *Session) recordQuery(status Status, runtimeVersion string, queryErr error) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	s.totalQueries++
	s.status = status
	if runtimeVersion != "" {
		s.runtimeVersion = runtimeVersion
	}
	s.lastErr = queryErr
	s.updatedAt = time.Now()
	return s.attempts
}

// settle derives and stores the decision for the current status.
func (s *Session) settle(autoPromptInstall bool) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.installRequested = autoPromptInstall && s.status.NeedsInstall()
	s.decision = Decide(s.status, s.installRequested)
	s.updatedAt = time.Now()
	return s.decision
}

// abandon leaves the decision unset after a cancelled round.
func (s *Session) abandon(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decision = DecisionNone
	s.installRequested = false
	s.lastErr = err
	s.updatedAt = time.Now()
}

func (s *Session) isInstallRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installRequested
}
