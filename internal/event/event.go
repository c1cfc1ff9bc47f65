package event

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeUserRegistered     Type = "user.registered"
	TypeLoginSucceeded     Type = "user.login_succeeded"
	TypeLoginFailed        Type = "user.login_failed"
	TypeTokenRefreshed     Type = "token.refreshed"
	TypeProfileUpdated     Type = "profile.updated"
	TypePasswordChanged    Type = "password.changed"
	TypePasswordChangeFail Type = "password.change_failed"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// AuthPayload is what every auth event carries. Passwords and tokens are
// never part of it.
type AuthPayload struct {
	UserID  int64          `json:"user_id,omitempty"`
	Email   string         `json:"email,omitempty"`
	IP      string         `json:"ip,omitempty"`
	Status  string         `json:"status"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Payload   AuthPayload `json:"payload"`
	Timestamp string      `json:"timestamp"`
	ActorID   string      `json:"actor_id,omitempty"`
}

func New(t Type, payload AuthPayload, at time.Time) Event {
	e := Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
	if payload.UserID > 0 {
		e.ActorID = strconv.FormatInt(payload.UserID, 10)
	}
	return e
}

type Publisher interface {
	Publish(e Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
