package chase

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
)

// payloadType tags what a payload carries.
type payloadType uint8

const (
	payloadNone payloadType = iota
	payloadHeader
	payloadTx
	payloadValue
)

// Payload is the value an event carries. It holds at most one of a header
// link, a transaction link or a numeric value. The zero value carries
// nothing.
type Payload struct {
	typ   payloadType
	value uint64
}

// NoPayload returns a payload that carries nothing.
func NoPayload() Payload {
	return Payload{}
}

// HeaderPayload returns a payload carrying a header link.
func HeaderPayload(link database.HeaderLink) Payload {
	return Payload{typ: payloadHeader, value: uint64(link)}
}

// TxPayload returns a payload carrying a transaction link.
func TxPayload(link database.TxLink) Payload {
	return Payload{typ: payloadTx, value: uint64(link)}
}

// ValuePayload returns a payload carrying a numeric value such as a height.
func ValuePayload(value uint64) Payload {
	return Payload{typ: payloadValue, value: value}
}

// Header returns the header link if the payload carries one.
func (p Payload) Header() (database.HeaderLink, bool) {
	if p.typ != payloadHeader {
		return database.HeaderLink(database.Terminal), false
	}
	return database.HeaderLink(p.value), true
}

// Tx returns the transaction link if the payload carries one.
func (p Payload) Tx() (database.TxLink, bool) {
	if p.typ != payloadTx {
		return database.TxLink(database.Terminal), false
	}
	return database.TxLink(p.value), true
}

// Value returns the numeric value if the payload carries one.
func (p Payload) Value() (uint64, bool) {
	if p.typ != payloadValue {
		return 0, false
	}
	return p.value, true
}

// String implements the fmt.Stringer interface for logging.
func (p Payload) String() string {
	switch p.typ {
	case payloadHeader:
		return "header:" + database.HeaderLink(p.value).String()
	case payloadTx:
		return "tx:" + database.TxLink(p.value).String()
	case payloadValue:
		return "value:" + strconv.FormatUint(p.value, 10)
	}
	return "none"
}

// =============================================================================

// Event is a single notification published on the bus. Events are values
// and never change once published.
type Event struct {
	Status  error
	Kind    Kind
	Payload Payload
}

// NewEvent constructs a successful event.
func NewEvent(kind Kind, payload Payload) Event {
	return Event{
		Kind:    kind,
		Payload: payload,
	}
}

// String implements the fmt.Stringer interface for logging.
func (ev Event) String() string {
	if ev.Status != nil {
		return fmt.Sprintf("%s(%s) status[%s]", ev.Kind, ev.Payload, ev.Status)
	}
	return fmt.Sprintf("%s(%s)", ev.Kind, ev.Payload)
}

// MarshalJSON implements the json.Marshaler interface so events can be
// streamed to clients.
func (ev Event) MarshalJSON() ([]byte, error) {
	doc := struct {
		Kind    Kind   `json:"kind"`
		Payload string `json:"payload"`
		Status  string `json:"status,omitempty"`
	}{
		Kind:    ev.Kind,
		Payload: ev.Payload.String(),
	}

	if ev.Status != nil {
		doc.Status = ev.Status.Error()
	}

	return json.Marshal(doc)
}
