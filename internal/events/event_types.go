package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated  EventType = "user_created"
	EventUserUpdated  EventType = "user_updated"
	EventUserDeleted  EventType = "user_deleted"
	EventUserLoggedIn EventType = "user_logged_in"
	EventLoginFailed  EventType = "login_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// UserUpdatedPayload lists the fields a partial update touched.
type UserUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// LoginFailedPayload records the attempted username.
type LoginFailedPayload struct {
	Username string `json:"username"`
}
