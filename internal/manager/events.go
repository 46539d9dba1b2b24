package manager

// Event names published by the admission controller.
const (
	EventAdmissionWait    = "admission_wait"
	EventAdmissionAcquire = "admission_acquire"
	EventAdmissionRelease = "admission_release"
	EventAdmissionTimeout = "admission_timeout"
	EventAdmissionCancel  = "admission_cancel"
)

// Event represents an admission lifecycle event.
// Minimal and stable: name + worker + log id and optional fields via key/values.
type Event struct {
	Name   string
	Worker int
	LogID  string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
