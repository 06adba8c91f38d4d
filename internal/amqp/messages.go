package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Resource names a kind of record carried by a change message.
type Resource string

const (
	ResourceExpense  Resource = "expense"
	ResourceCategory Resource = "category"
)

// Operation is what happened to the record.
type Operation string

const (
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
)

// ChangeMessage announces a saved or deleted record. It carries only the
// id; consumers read the current state from storage.
type ChangeMessage struct {
	Resource  Resource  `json:"resource"`
	Op        Operation `json:"op"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage stamps a message with the current time.
func NewChangeMessage(resource Resource, op Operation, id string) ChangeMessage {
	return ChangeMessage{
		Resource:  resource,
		Op:        op,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey is "<resource>.<op>".
func (m ChangeMessage) RoutingKey() string {
	return string(m.Resource) + "." + string(m.Op)
}

// ToJSON converts the message to JSON bytes
func (m ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and checks a message.
func ChangeMessageFromJSON(data []byte) (ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ChangeMessage{}, err
	}
	switch msg.Resource {
	case ResourceExpense, ResourceCategory:
	default:
		return ChangeMessage{}, fmt.Errorf("unknown resource %q", msg.Resource)
	}
	switch msg.Op {
	case OpUpsert, OpDelete:
	default:
		return ChangeMessage{}, fmt.Errorf("unknown operation %q", msg.Op)
	}
	if msg.ID == "" {
		return ChangeMessage{}, fmt.Errorf("message without id")
	}
	return msg, nil
}
