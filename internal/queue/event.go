// Package queue defines the auth events exchanged over the message broker
// and the consumer that turns them into an audit trail.
package queue

// AuthEventsQueue is the durable queue every auth event is routed to.
const AuthEventsQueue = "auth.events"

// Event types.
const (
	EventSignedUp    = "account.signed_up"
	EventLoggedIn    = "account.logged_in"
	EventLoggedOut   = "account.logged_out"
	EventLoginFailed = "account.login_failed"
)

// AuthEvent is published after every credential operation.  It never
// carries passwords or tokens.
type AuthEvent struct {
	Type       string `json:"type"`
	AccountID  string `json:"account_id,omitempty"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
	Endpoint   string `json:"endpoint"`
	RemoteIP   string `json:"remote_ip,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
