package models

import (
	"fmt"
	"time"

	"apiconform/internal/jsonpath"
)

const (
	HeartbeatMethod = "public/heartbeat"

	ChannelBook       = "book"
	ChannelBookUpdate = "book.update"
)

// Message is one decoded inbound frame.
type Message struct {
	Raw        []byte
	Root       *jsonpath.Value
	ReceivedAt time.Time
}

// ParseMessage decodes a frame received at the given time.
func ParseMessage(raw []byte, at time.Time) (Message, error) {
	root, err := jsonpath.Parse(raw)
	if err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return Message{Raw: raw, Root: root, ReceivedAt: at}, nil
}

// NewMessage wraps an already decoded value.
func NewMessage(root *jsonpath.Value) Message {
	return Message{Raw: []byte(root.String()), Root: root, ReceivedAt: time.Now()}
}

// Get resolves a dotted field path such as result.data.0.u.
func (m Message) Get(path string) (*jsonpath.Value, bool) {
	return jsonpath.Lookup(m.Root, path)
}

// ID returns the request correlation id; pushes usually carry -1 or none.
func (m Message) ID() (int64, bool) {
	v, ok := m.Root.Get("id")
	if !ok {
		return 0, false
	}
	return v.Int64()
}

func (m Message) Method() string {
	v, ok := m.Root.Get("method")
	if !ok {
		return ""
	}
	s, _ := v.Text()
	return s
}

// Code returns the business status code of the frame.
func (m Message) Code() (int64, bool) {
	v, ok := m.Root.Get("code")
	if !ok {
		return 0, false
	}
	return v.Int64()
}

// Channel returns result.channel, falling back to a top-level channel field.
func (m Message) Channel() string {
	if v, ok := jsonpath.Lookup(m.Root, "result.channel"); ok {
		s, _ := v.Text()
		return s
	}
	if v, ok := m.Root.Get("channel"); ok {
		s, _ := v.Text()
		return s
	}
	return ""
}

func (m Message) IsHeartbeat() bool {
	return m.Method() == HeartbeatMethod
}

// Values gathers the roots of msgs into one array so path queries such as
// $[0].result.channel can run over a collected batch.
func Values(msgs []Message) *jsonpath.Value {
	items := make([]*jsonpath.Value, len(msgs))
	for i, m := range msgs {
		items[i] = m.Root
	}
	return jsonpath.ArrayValue(items...)
}
