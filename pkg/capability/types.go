package capability

// Status is the classified outcome of a capability query.
type Status string

const (
	// StatusUnknown means the query could not complete. It is the only
	// transient status and the initial status of every session.
	StatusUnknown               Status = "unknown"
	StatusSupported             Status = "supported"
	StatusSupportedOutdated     Status = "supported_outdated"
	StatusSupportedNotInstalled Status = "supported_not_installed"
	StatusUnsupported           Status = "unsupported"
)

// NeedsInstall reports whether the runtime must be installed or updated
// before AR features can run.
func (s Status) NeedsInstall() bool {
	return s == StatusSupportedOutdated || s == StatusSupportedNotInstalled
}

func (s Status) String() string { return string(s) }

// Decision is the instruction handed to the caller. The zero value means no
// decision has been reached (round in progress or cancelled) and must not be
// read as DecisionDisable.
type Decision string

const (
	DecisionNone          Decision = ""
	DecisionProceed       Decision = "proceed"
	DecisionPromptInstall Decision = "prompt_install"
	DecisionDisable       Decision = "disable"
	DecisionRetry         Decision = "retry"
)

// Terminal reports whether re-evaluating the session can change the decision
// without an explicit caller action.
func (d Decision) Terminal() bool {
	return d == DecisionProceed || d == DecisionDisable
}

func (d Decision) String() string {
	if d == DecisionNone {
		return "none"
	}
	return string(d)
}

// Availability is the raw answer of the device / AR runtime, named after the
// runtime's own availability codes.
type Availability string

const (
	AvailabilitySupportedInstalled    Availability = "SUPPORTED_INSTALLED"
	AvailabilitySupportedApkTooOld    Availability = "SUPPORTED_APK_TOO_OLD"
	AvailabilitySupportedNotInstalled Availability = "SUPPORTED_NOT_INSTALLED"
	AvailabilityUnsupported           Availability = "UNSUPPORTED_DEVICE_NOT_CAPABLE"
	AvailabilityUnknownChecking       Availability = "UNKNOWN_CHECKING"
	AvailabilityUnknownTimedOut       Availability = "UNKNOWN_TIMED_OUT"
	AvailabilityUnknownError          Availability = "UNKNOWN_ERROR"
)

// DeviceInfo holds the device facts a provider could determine. Zero values
// mean "not reported".
type DeviceInfo struct {
	Model    string   `json:"model,omitempty" yaml:"model"`
	APILevel int      `json:"api_level,omitempty" yaml:"api_level"`
	ABIs     []string `json:"abis,omitempty" yaml:"abis"`
}

// RawResult is what a Provider returns from a capability query.
type RawResult struct {
	Availability   Availability `json:"availability"`
	RuntimeVersion string       `json:"runtime_version,omitempty"`
	Device         DeviceInfo   `json:"device"`
}

// Policy holds the requirements a device and runtime must meet.
type Policy struct {
	MinRuntimeVersion string   `mapstructure:"min_runtime_version" yaml:"min_runtime_version"`
	MinAPILevel       int      `mapstructure:"min_api_level" yaml:"min_api_level"`
	SupportedABIs     []string `mapstructure:"supported_abis" yaml:"supported_abis"`
}

// DefaultPolicy mirrors the requirements of the AR host build: ARCore 1.41,
// Android API 24 and 64/32-bit ARM.
func DefaultPolicy() Policy {
	return Policy{
		MinRuntimeVersion: "1.41.0",
		MinAPILevel:       24,
		SupportedABIs:     []string{"arm64-v8a", "armeabi-v7a"},
	}
}
