package amqp

import (
	"encoding/json"
	"time"
)

const (
	EventRecordSaved   = "record.saved"
	EventRecordDeleted = "record.deleted"
)

// RecordEvent notifies downstream consumers that a ledger day changed.
// It carries only the date; consumers fetch current state from the API, so
// a stale event is harmless.
type RecordEvent struct {
	Event     string    `json:"event"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEvent(event, date string) *RecordEvent {
	return &RecordEvent{
		Event:     event,
		Date:      date,
		Timestamp: time.Now().UTC(),
	}
}

func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var e RecordEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
