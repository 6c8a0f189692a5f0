package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymtrack/internal/adapters/storage"
	domain "gymtrack/internal/domain/audit"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db)
}

func TestSQLiteStore_SaveAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	events := []domain.Event{
		domain.NewEvent("admin", domain.CategoryMember, domain.ActionCreate, base).WithResource("m1").WithDescription("added Asha"),
		domain.NewEvent("trainer", domain.CategoryMember, domain.ActionUpdate, base.Add(time.Minute)).WithResource("m1"),
		domain.NewEvent("admin", domain.CategoryAccount, domain.ActionLogin, base.Add(2*time.Minute)),
		domain.NewEvent("", domain.CategoryReminder, domain.ActionSend, base.Add(3*time.Minute)),
	}
	for _, e := range events {
		if err := s.Save(ctx, e); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("List() returned %d events, want 4", len(all))
	}
	if all[0].Category != domain.CategoryReminder || all[0].Actor != domain.ActorSystem {
		t.Errorf("newest event = %+v, want the system reminder run", all[0])
	}
	if !all[3].Timestamp.Equal(base) || all[3].Description != "added Asha" {
		t.Errorf("oldest event = %+v", all[3])
	}

	byMember, _ := s.List(ctx, Filter{ResourceID: "m1"})
	if len(byMember) != 2 {
		t.Errorf("resource filter returned %d, want 2", len(byMember))
	}
	byActor, _ := s.List(ctx, Filter{Actor: "admin", Category: domain.CategoryAccount})
	if len(byActor) != 1 || byActor[0].Action != domain.ActionLogin {
		t.Errorf("actor+category filter = %+v", byActor)
	}
	limited, _ := s.List(ctx, Filter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit returned %d, want 1", len(limited))
	}
}

func TestSQLiteStore_RejectsInvalidEvent(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(context.Background(), domain.Event{ID: "x", Actor: "admin", Action: domain.ActionCreate})
	if !errors.Is(err, domain.ErrEmptyCategory) {
		t.Errorf("err = %v, want ErrEmptyCategory", err)
	}
}
