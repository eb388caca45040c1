package models

import "encoding/json"

type EventType string

const (
	EventProgress    EventType = "progress"
	EventRecordFound EventType = "job"
	EventComplete    EventType = "complete"
	EventError       EventType = "error"
)

// Event is the only value a search session hands to its consumer.
// Exactly one of Message, Job or Total is meaningful, depending on Type.
type Event struct {
	Type    EventType
	Message string
	Job     *Job
	Total   int
}

func Progress(message string) Event {
	return Event{Type: EventProgress, Message: message}
}

func RecordFound(job Job) Event {
	return Event{Type: EventRecordFound, Job: &job}
}

func Complete(total int) Event {
	return Event{Type: EventComplete, Total: total}
}

func Error(message string) Event {
	return Event{Type: EventError, Message: message}
}

// Terminal reports whether the event ends a session stream.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// MarshalJSON renders the wire shape relayed to clients:
// {"type":"progress","message":...}, {"type":"job","data":...},
// {"type":"complete","total":...}, {"type":"error","message":...}.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventRecordFound:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Data *Job      `json:"data"`
		}{e.Type, e.Job})
	case EventComplete:
		return json.Marshal(struct {
			Type  EventType `json:"type"`
			Total int       `json:"total"`
		}{e.Type, e.Total})
	default:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
		}{e.Type, e.Message})
	}
}
