package capability

import (
	"github.com/LumeraProtocol/arprov/pkg/utils"
)

// Classify maps a raw query result to a Status. It is pure: the same input
// always yields the same Status.
//
// StatusUnsupported is only returned for definitive negative facts (the
// runtime says so, or the device is below the API level / ABI floor).
// Anything inconclusive is StatusUnknown.
func Classify(raw *RawResult, policy Policy) Status {
	if raw == nil {
		return StatusUnknown
	}

	switch raw.Availability {
	case AvailabilityUnsupported:
		return StatusUnsupported
	case AvailabilitySupportedInstalled, AvailabilitySupportedApkTooOld, AvailabilitySupportedNotInstalled:
	default:
		// UNKNOWN_* and anything unrecognised
		return StatusUnknown
	}

	if !deviceMeetsPolicy(raw.Device, policy) {
		return StatusUnsupported
	}

	switch raw.Availability {
	case AvailabilitySupportedNotInstalled:
		return StatusSupportedNotInstalled
	case AvailabilitySupportedApkTooOld:
		return StatusSupportedOutdated
	}

	if raw.RuntimeVersion != "" {
		// unparseable versions fall through to StatusSupported
		if ok, err := utils.AtLeast(raw.RuntimeVersion, policy.MinRuntimeVersion); err == nil && !ok {
			return StatusSupportedOutdated
		}
	}
	return StatusSupported
}

func deviceMeetsPolicy(dev DeviceInfo, policy Policy) bool {
	if dev.APILevel > 0 && policy.MinAPILevel > 0 && dev.APILevel < policy.MinAPILevel {
		return false
	}
	if len(dev.ABIs) == 0 || len(policy.SupportedABIs) == 0 {
		return true
	}
	for _, abi := range dev.ABIs {
		for _, want := range policy.SupportedABIs {
			if abi == want {
				return true
			}
		}
	}
	return false
}

// Decide derives the decision for a settled status. It is the only place a
// Decision is produced. StatusUnknown only reaches Decide once the attempt
// budget is exhausted.
func Decide(status Status, installRequested bool) Decision {
	switch status {
	case StatusSupported:
		return DecisionProceed
	case StatusSupportedOutdated, StatusSupportedNotInstalled:
		if installRequested {
			return DecisionPromptInstall
		}
		return DecisionDisable
	case StatusUnsupported:
		return DecisionDisable
	default:
		return DecisionRetry
	}
}
