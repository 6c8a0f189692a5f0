package audit

import (
	"errors"
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	e := NewEvent("", CategoryReminder, ActionSend, at).WithDescription("3 sent")

	if e.ID == "" {
		t.Error("expected an ID")
	}
	if e.Actor != ActorSystem {
		t.Errorf("Actor = %q, want %q", e.Actor, ActorSystem)
	}
	if !e.Timestamp.Equal(at) || e.Description != "3 sent" {
		t.Errorf("event = %+v", e)
	}
	if err := e.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if other := NewEvent("admin", CategoryMember, ActionCreate, at); other.ID == e.ID {
		t.Error("IDs should be unique")
	}
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  error
	}{
		{"missing category", Event{Action: ActionCreate, Actor: "a"}, ErrEmptyCategory},
		{"missing action", Event{Category: CategoryMember, Actor: "a"}, ErrEmptyAction},
		{"missing actor", Event{Category: CategoryMember, Action: ActionCreate}, ErrEmptyActor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.event.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
