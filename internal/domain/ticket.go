package domain

import "time"

// TicketStatus is a free-form lifecycle label. Every ticket starts out open;
// owners may move it to any other status via the update endpoint.
type TicketStatus = string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is the aggregate for tracked work items. OwnerID is set at creation
// from the authenticated caller and never changes afterwards.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
