package simulation

import "time"

// EventType tags an emitted simulation event. These values are the
// contract a presentation layer implements against.
type EventType string

const (
	EventSceneMaster EventType = "scene-master"
	EventAgent1      EventType = "agent-1"
	EventAgent2      EventType = "agent-2"
	EventError       EventType = "error"
	EventOutput      EventType = "output"
)

// Event is one incremental simulation result: a scene-master beat, an
// agent's monologue or action, a progress notice, or an error.
type Event struct {
	Type      EventType `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(t EventType, content string) Event {
	return Event{Type: t, Content: content, Timestamp: time.Now().UTC()}
}
