package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordChangedMessage announces a committed write to the record store.
// It carries only identifiers; consumers re-read the store for data.
type RecordChangedMessage struct {
	MessageID string    `json:"message_id"`
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	RecordID  int64     `json:"record_id,omitempty"`
	Date      string    `json:"date,omitempty"` // YYYY-MM-DD, empty when unknown
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(kind, op string, recordID int64, date string) *RecordChangedMessage {
	return &RecordChangedMessage{
		MessageID: uuid.NewString(),
		Kind:      kind,
		Op:        op,
		RecordID:  recordID,
		Date:      date,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes and sanity-checks a message body.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.MessageID); err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", msg.MessageID, err)
	}
	if msg.Kind == "" || msg.Op == "" {
		return nil, fmt.Errorf("message %s: kind and op are required", msg.MessageID)
	}
	return &msg, nil
}
