package cascade

// Event represents a cascade lifecycle event.
// Minimal and stable: name + candidate label and optional fields via key/values.
type Event struct {
	Name      string
	Candidate string
	Fields    map[string]any
}

// EventPublisher receives events from the cascade. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
