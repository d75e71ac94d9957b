package audit

import "time"

// Event is an immutable, append-only audit log record for control-plane
// actions against the switch.
//
// Invariants:
// - Events are never updated or deleted.
// - account_id is required for tenancy isolation.
// - actor and ip capture are best-effort; do not block control flows on audit failures.

type Event struct {
	ID        string `json:"id" db:"id"`
	AccountID int64  `json:"account_id" db:"account_id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Command is the switch operation name (reloadxml, originate, ...).
	Command string `json:"command,omitempty" db:"command"`
	// SourceExt / DestinationExt are set for origination events.
	SourceExt      string `json:"source_ext,omitempty" db:"source_ext"`
	DestinationExt string `json:"destination_ext,omitempty" db:"destination_ext"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeSwitchControl EventType = "switch_control"
	EventTypeOriginate     EventType = "originate"
)
