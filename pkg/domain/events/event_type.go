package events

// EventType represents the type of an event in the system.
type EventType string

const (
	// EventTypePaymentDatesUpdated is emitted once per user by the daily job.
	EventTypePaymentDatesUpdated EventType = "Ledger.PaymentDatesUpdated"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}

// Event is implemented by every event published on the bus.
type Event interface {
	Type() string
}

// EventTypes maps event type names to constructors used when decoding from a transport.
var EventTypes = map[EventType]func() Event{
	EventTypePaymentDatesUpdated: func() Event { return &PaymentDatesUpdated{} },
}
