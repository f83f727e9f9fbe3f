package capability

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned before any query when Config is unusable.
	ErrInvalidConfig = errors.New("invalid provisioner configuration")
	// ErrQueryTimeout and ErrQueryFailed never escape Evaluate; they classify
	// as StatusUnknown and are recorded on the session.
	ErrQueryTimeout = errors.New("capability query timed out")
	ErrQueryFailed  = errors.New("capability query failed")

	ErrInstallRequestFailed = errors.New("install request failed")
	ErrInstallNotRequested  = errors.New("session has not requested an install")
	ErrEvaluationInFlight   = errors.New("evaluation already in flight for session")
	ErrNilSession           = errors.New("nil provisioning session")
)

// InstallRequestError is the distinct signal for a failed install request,
// so callers can fall back to manual install instructions.
type InstallRequestError struct {
	SessionID string
	Err       error
}

func (e *InstallRequestError) Error() string {
	return fmt.Sprintf("install request failed for session %s: %v", e.SessionID, e.Err)
}

func (e *InstallRequestError) Unwrap() []error {
	return []error{ErrInstallRequestFailed, e.Err}
}
