package contracttest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	memberstore "gymtrack/internal/adapters/storage/member"
	domain "gymtrack/internal/domain/member"
	"gymtrack/internal/domain/membership"
)

type CleanupFunc = func()

type MemberStoreFactory func(t *testing.T) (memberstore.Store, CleanupFunc)

func day(s string) time.Time {
	t, err := time.Parse(membership.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleRecord(name, phone string, plan membership.Plan, start, expiry string) domain.Record {
	return domain.Record{
		ID:         uuid.NewString(),
		Name:       name,
		Phone:      phone,
		Email:      "",
		Plan:       plan,
		StartDate:  day(start),
		ExpiryDate: day(expiry),
		RecordedBy: "admin",
		RecordedAt: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
	}
}

func sameRecord(a, b domain.Record) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Phone == b.Phone &&
		a.Email == b.Email &&
		a.Plan == b.Plan &&
		a.StartDate.Equal(b.StartDate) &&
		a.ExpiryDate.Equal(b.ExpiryDate) &&
		a.RecordedBy == b.RecordedBy &&
		a.RecordedAt.Equal(b.RecordedAt)
}

// RunMemberStore exercises the behaviour every member backend must share.
func RunMemberStore(t *testing.T, newStore MemberStoreFactory) {
	t.Helper()

	open := func(t *testing.T) memberstore.Store {
		store, cleanup := newStore(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}
		return store
	}

	t.Run("empty", func(t *testing.T) {
		store := open(t)
		got, err := store.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected empty store, got %d records", len(got))
		}
	})

	t.Run("round trip", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		want := sampleRecord("Asha Rao", "+919800000001", membership.PlanMonthly, "2024-01-15", "2024-02-14")
		want.Email = "asha@example.com"
		if err := store.Save(ctx, want); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := store.Get(ctx, want.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !sameRecord(got, want) {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
		}
	})

	t.Run("every plan round trips", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		ids := map[membership.Plan]string{}
		for _, p := range membership.Plans {
			rec := sampleRecord("Member "+string(p), "98", p, "2024-03-01", "2024-03-31")
			ids[p] = rec.ID
			if err := store.Save(ctx, rec); err != nil {
				t.Fatalf("Save(%s): %v", p, err)
			}
		}
		for p, id := range ids {
			got, err := store.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get(%s): %v", p, err)
			}
			if got.Plan != p {
				t.Errorf("plan = %q, want %q", got.Plan, p)
			}
		}
	})

	t.Run("save replaces by id", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		rec := sampleRecord("Ravi", "98", membership.PlanMonthly, "2024-01-01", "2024-01-31")
		other := sampleRecord("Meera", "97", membership.PlanYearly, "2024-01-01", "2024-12-31")
		for _, r := range []domain.Record{rec, other} {
			if err := store.Save(ctx, r); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}
		rec.Plan = membership.PlanQuarterly
		rec.ExpiryDate = day("2024-03-31")
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save update: %v", err)
		}

		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 records after update, got %d", len(all))
		}
		got, _ := store.Get(ctx, rec.ID)
		if !sameRecord(got, rec) {
			t.Fatalf("update not applied: %+v", got)
		}
		untouched, _ := store.Get(ctx, other.ID)
		if !sameRecord(untouched, other) {
			t.Fatalf("unrelated record changed: %+v", untouched)
		}
	})

	t.Run("list preserves insertion order", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		var want []string
		for _, name := range []string{"Zara", "Anil", "Kiran"} {
			r := sampleRecord(name, "98", membership.PlanMonthly, "2024-01-01", "2024-01-31")
			want = append(want, name)
			if err := store.Save(ctx, r); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}
		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		for i := range want {
			if all[i].Name != want[i] {
				t.Fatalf("order = %v, want %v", names(all), want)
			}
		}
	})

	t.Run("delete", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		rec := sampleRecord("Ravi", "98", membership.PlanMonthly, "2024-01-01", "2024-01-31")
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := store.Delete(ctx, rec.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := store.Get(ctx, rec.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get after delete: err=%v, want ErrNotFound", err)
		}
		if err := store.Delete(ctx, rec.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("second Delete: err=%v, want ErrNotFound", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		if _, err := store.Get(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get: err=%v, want ErrNotFound", err)
		}
		rec := sampleRecord("NoID", "98", membership.PlanMonthly, "2024-01-01", "2024-01-31")
		rec.ID = ""
		if err := store.Save(ctx, rec); !errors.Is(err, memberstore.ErrMissingID) {
			t.Fatalf("Save without id: err=%v, want ErrMissingID", err)
		}
	})

	t.Run("concurrent saves", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		const n = 10
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r := sampleRecord("Member", "98", membership.PlanMonthly, "2024-01-01", "2024-01-31")
				r.Name = "Member " + string(rune('A'+i))
				errs <- store.Save(ctx, r)
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent Save: %v", err)
			}
		}
		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != n {
			t.Fatalf("expected %d records after concurrent saves, got %d", n, len(all))
		}
		got := names(all)
		sort.Strings(got)
		for i := range got {
			if want := "Member " + string(rune('A'+i)); got[i] != want {
				t.Fatalf("names = %v", got)
			}
		}
	})
}

func names(recs []domain.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}
