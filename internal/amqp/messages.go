package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finvoice/internal/core"
)

// Op names the mutation that produced a change message.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeMessage is the wire form of one collection change. It carries only
// the coordinates of the change; consumers fetch the full record from the
// local store, so a stale message never overwrites newer data.
type ChangeMessage struct {
	Collection core.Collection `json:"collection"`
	Op         Op              `json:"op"`
	UserID     string          `json:"userId"`
	RecordID   string          `json:"recordId"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewChangeMessage(collection core.Collection, op Op, userID, recordID string) *ChangeMessage {
	return &ChangeMessage{
		Collection: collection,
		Op:         op,
		UserID:     userID,
		RecordID:   recordID,
		Timestamp:  time.Now(),
	}
}

func (m *ChangeMessage) Validate() error {
	if !m.Collection.IsValid() {
		return fmt.Errorf("invalid collection: %s", m.Collection)
	}
	switch m.Op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("invalid op: %s", m.Op)
	}
	if m.UserID == "" {
		return fmt.Errorf("missing user id")
	}
	return nil
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
