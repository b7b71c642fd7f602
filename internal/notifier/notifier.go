// Package notifier is the portal's notification sink. Delivery is
// fire-and-forget: callers have already committed their state change,
// so a failed send is logged and swallowed, never rolled back.
package notifier

// RoleStaff addresses every staff member instead of one recipient.
const RoleStaff = "staff"

type Message struct {
	// Recipient is a member id rendered as a string, or RoleStaff.
	Recipient string
	Kind      string
	Title     string
	Body      string
	Metadata  map[string]string
}

type Notifier interface {
	Notify(msg Message) error
}

// Noop discards every message; used in tests and when no sink is
// configured.
type Noop struct{}

func (Noop) Notify(Message) error { return nil }
