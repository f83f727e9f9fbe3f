package event

import "time"

// EventType represents the type of event
type EventType string

const (
	// Query lifecycle
	QueryAttempt EventType = "query.attempt"
	QueryFailed  EventType = "query.failed"

	// Session outcome
	ProvisionDecided   EventType = "provision.decided"
	ProvisionCancelled EventType = "provision.cancelled"

	// Install flow
	InstallRequested EventType = "install.requested"
	InstallFailed    EventType = "install.failed"
)

// EventDataKey defines standard keys used in event data
type EventDataKey string

const (
	KeyError          EventDataKey = "error"
	KeyAttempt        EventDataKey = "attempt"
	KeyMaxAttempts    EventDataKey = "max_attempts"
	KeyStatus         EventDataKey = "status"
	KeyDecision       EventDataKey = "decision"
	KeyBackoff        EventDataKey = "backoff"
	KeyRuntimeVersion EventDataKey = "runtime_version"
	KeyInstallWanted  EventDataKey = "install_requested"
)

// Event represents an event emitted by the provisioner
type Event struct {
	Type      EventType
	SessionID string
	Timestamp time.Time
	Data      map[EventDataKey]interface{}
}

func NewEvent(eventType EventType, sessionID string, data map[EventDataKey]interface{}) Event {
	if data == nil {
		data = make(map[EventDataKey]interface{})
	}

	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data:      data,
	}
}
