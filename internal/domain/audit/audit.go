package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Category groups audit events by what they touched.
type Category string

const (
	CategoryAccount  Category = "account"
	CategoryMember   Category = "member"
	CategoryReminder Category = "reminder"
)

// Action is what happened.
type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionImport      Action = "import"
	ActionLogin       Action = "login"
	ActionLoginFailed Action = "login_failed"
	ActionSend        Action = "send"
)

// ActorSystem is the actor of events that no signed-in user caused,
// such as scheduled reminder runs.
const ActorSystem = "system"

// Domain errors.
var (
	ErrEmptyCategory = errors.New("audit category is required")
	ErrEmptyAction   = errors.New("audit action is required")
	ErrEmptyActor    = errors.New("audit actor is required")
)

// Event is one staff-visible record of a change or sign-in.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Category    Category  `json:"category"`
	Action      Action    `json:"action"`
	Actor       string    `json:"actor"` // username, or ActorSystem
	ResourceID  string    `json:"resource_id,omitempty"`
	Description string    `json:"description,omitempty"`
}

// NewEvent creates an event with a fresh ID.
// An empty actor is recorded as ActorSystem.
// POST: Returns an Event stamped with at
func NewEvent(actor string, category Category, action Action, at time.Time) Event {
	if actor == "" {
		actor = ActorSystem
	}
	return Event{
		ID:        uuid.New().String(),
		Timestamp: at,
		Category:  category,
		Action:    action,
		Actor:     actor,
	}
}

// WithResource sets the ID of the member or account the event is about.
func (e Event) WithResource(id string) Event {
	e.ResourceID = id
	return e
}

// WithDescription sets a human-readable summary.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// Validate checks the required fields.
func (e Event) Validate() error {
	if e.Category == "" {
		return ErrEmptyCategory
	}
	if e.Action == "" {
		return ErrEmptyAction
	}
	if e.Actor == "" {
		return ErrEmptyActor
	}
	return nil
}
