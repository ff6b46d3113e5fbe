package events

// EventType identifies a lifecycle event.
type EventType string

const (
	EventUserRegistered      EventType = "user.registered"
	EventTicketCreated       EventType = "ticket.created"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketDeleted       EventType = "ticket.deleted"
)

// Event carries lifecycle data to subscribers.
type Event struct {
	Type     EventType
	UserID   string
	TicketID string
	Payload  map[string]any
}
