// Package queue defines message payloads exchanged over the message broker.
package queue

// Member event kinds published on the member.events queue.
const (
	KindRegistered = "registered"
	KindLoggedIn   = "logged_in"
)

// MemberEvent is published when a member account is created or signs in.
// It carries enough information for downstream consumers to log, notify or
// feed analytics without querying the primary database.
type MemberEvent struct {
	Kind       string  `json:"kind"`
	UserID     uint64  `json:"user_id"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	CompanyID  *uint64 `json:"company_id,omitempty"`
	IP         string  `json:"ip,omitempty"`
	OccurredAt string  `json:"occurred_at"`
}
