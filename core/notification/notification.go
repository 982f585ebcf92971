package notification

// EventType identifies a state transition worth telling the learner about.
type EventType string

const (
	ModuleCompleted    EventType = "MODULE_COMPLETED"
	TestPassed         EventType = "TEST_PASSED"
	CertificateIssued  EventType = "CERTIFICATE_ISSUED"
	CertificateRevoked EventType = "CERTIFICATE_REVOKED"
)

// Event carries a state transition to a Notifier.
type Event struct {
	Type          EventType
	SubjectUserID string
	Payload       map[string]interface{}
}

// Notifier is any service that can deliver events. Delivery is
// fire-and-forget: a failed delivery must never fail the state
// transition that produced the event.
type Notifier interface {
	Notify(event Event)
}

// NopNotifier discards all events.
type NopNotifier struct{}

var _ Notifier = (*NopNotifier)(nil)

func (NopNotifier) Notify(Event) {}
