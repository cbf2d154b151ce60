package diary

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/platewise/internal/engine"
	"github.com/hyperengineering/platewise/internal/moderation"
	"github.com/hyperengineering/platewise/internal/store"
	"github.com/hyperengineering/platewise/internal/types"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *fakeClock, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "diary.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)}
	eng := engine.New(nil, st, engine.WithClock(clock.Now))
	svc := NewService(st, eng, WithClock(clock.Now), WithModerator(moderation.New(nil)))
	return svc, clock, st
}

func intPtr(v int) *int { return &v }

func TestAddEntry_Defaults(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.AddEntry(context.Background(), types.NewEntryRequest{Food: "  rice  "})
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if res.Entry.ID == "" {
		t.Error("expected ID to be set")
	}
	if res.Entry.Food != "rice" {
		t.Errorf("Food = %q, want trimmed", res.Entry.Food)
	}
	if res.Entry.Date != "2024-03-01" {
		t.Errorf("Date = %q, want 2024-03-01", res.Entry.Date)
	}
	if res.Entry.MealType != types.MealUnspecified {
		t.Errorf("MealType = %q, want Unspecified", res.Entry.MealType)
	}
	if !res.Analysis.Combo.Safe {
		t.Errorf("rice should be safe: %+v", res.Analysis.Combo)
	}
}

func TestAddEntry_UnsafeIsStillSaved(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()

	res, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "Cheeseburger", MealType: "Lunch"})
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if res.Analysis.Combo.Safe {
		t.Fatal("cheeseburger should be unsafe")
	}
	if got := *res.Analysis.Combo.Warning; got != engine.WarningCombination {
		t.Errorf("Warning = %q, want %q", got, engine.WarningCombination)
	}

	if _, err := st.GetEntry(ctx, res.Entry.ID); err != nil {
		t.Errorf("unsafe entry should be saved: %v", err)
	}

	state, err := st.LoadCooldown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.LastS != nil || state.LastP != nil {
		t.Errorf("unsafe entry advanced cooldown: %+v", state)
	}
}

func TestAddEntry_CooldownAcrossEntries(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "rice"}); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Hour)
	res, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "chicken"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Analysis.Combo.Safe {
		t.Fatal("chicken one hour after rice should be unsafe")
	}
	if want := "Wait 120 minutes before eating P after S"; *res.Analysis.Combo.Warning != want {
		t.Errorf("Warning = %q, want %q", *res.Analysis.Combo.Warning, want)
	}

	clock.Advance(2*time.Hour + time.Second)
	res, err = svc.AddEntry(ctx, types.NewEntryRequest{Food: "chicken"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Analysis.Combo.Safe {
		t.Errorf("chicken after the window should be safe: %+v", res.Analysis.Combo)
	}
}

// failingSaveStore rejects every new entry.
type failingSaveStore struct {
	*store.SQLiteStore
}

func (f failingSaveStore) CreateEntry(ctx context.Context, entry types.Entry) error {
	return errors.New("disk full")
}

// failingCooldownStore saves entries but cannot commit the cooldown.
type failingCooldownStore struct {
	*store.SQLiteStore
}

func (f failingCooldownStore) UpdateCooldown(ctx context.Context, fn engine.UpdateFunc) error {
	return errors.New("database is locked")
}

func TestAddEntry_FailedSaveLeavesCooldown(t *testing.T) {
	_, clock, st := newTestService(t)
	ctx := context.Background()

	wrapped := failingSaveStore{st}
	eng := engine.New(nil, wrapped, engine.WithClock(clock.Now))
	svc := NewService(wrapped, eng, WithClock(clock.Now), WithModerator(moderation.New(nil)))

	_, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "rice"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("AddEntry error = %v, want disk full", err)
	}

	state, err := st.LoadCooldown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.LastS != nil || state.LastP != nil {
		t.Errorf("cooldown moved for an unsaved entry: %+v", state)
	}
}

func TestAddEntry_FailedCooldownRemovesEntry(t *testing.T) {
	_, clock, st := newTestService(t)
	ctx := context.Background()

	wrapped := failingCooldownStore{st}
	eng := engine.New(nil, wrapped, engine.WithClock(clock.Now))
	svc := NewService(wrapped, eng, WithClock(clock.Now), WithModerator(moderation.New(nil)))

	if _, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "rice"}); err == nil {
		t.Fatal("AddEntry should fail when the cooldown cannot be committed")
	}

	entries, err := st.ListEntries(ctx, types.FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0 after a failed cooldown commit", len(entries))
	}
}

func TestAddEntry_ValidationFailed(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name  string
		req   types.NewEntryRequest
		field string
	}{
		{"empty food", types.NewEntryRequest{Food: "   "}, "food"},
		{"blocked phrase", types.NewEntryRequest{Food: "sh1t sandwich"}, "food"},
		{"bp too low", types.NewEntryRequest{Food: "rice", SystolicBP: intPtr(10)}, "bps"},
		{"bad meal", types.NewEntryRequest{Food: "rice", MealType: "Brunch"}, "meal_type"},
		{"bad bowel score", types.NewEntryRequest{Food: "rice", BowelScore: "8"}, "bs"},
		{"bad date", types.NewEntryRequest{Food: "rice", Date: "March 1"}, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddEntry(context.Background(), tt.req)
			var vErr *ValidationFailedError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want ValidationFailedError", err)
			}
			found := false
			for _, fe := range vErr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %s error, got %v", tt.field, vErr.Errors)
			}
			if !strings.Contains(vErr.Error(), tt.field) {
				t.Errorf("Error() = %q should name the field", vErr.Error())
			}
		})
	}
}

func TestAddEntry_Triggers(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.AddEntry(context.Background(), types.NewEntryRequest{Food: "yogurt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Triggers) != 1 || res.Triggers[0] != "yogurt" {
		t.Errorf("Triggers = %v, want [yogurt]", res.Triggers)
	}
}

func TestAddEntry_BPReminder(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "salad"})
	if err != nil {
		t.Fatal(err)
	}
	if first.BPReminder {
		t.Error("one entry should not trigger the reminder")
	}

	clock.Advance(time.Minute)
	second, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "lettuce"})
	if err != nil {
		t.Fatal(err)
	}
	if !second.BPReminder {
		t.Error("second entry without BP should trigger the reminder")
	}

	clock.Advance(time.Minute)
	third, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "celery"})
	if err != nil {
		t.Fatal(err)
	}
	if third.BPReminder {
		t.Error("reminder should be shown once per date")
	}

	other, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "kale", Date: "2024-02-28"})
	if err != nil {
		t.Fatal(err)
	}
	if other.BPReminder {
		t.Error("single entry on another date should not trigger the reminder")
	}
}

func TestAddEntry_BPRecordedSuppressesReminder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "salad", SystolicBP: intPtr(118)}); err != nil {
		t.Fatal(err)
	}
	res, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "lettuce"})
	if err != nil {
		t.Fatal(err)
	}
	if res.BPReminder {
		t.Error("a date with a BP reading should not trigger the reminder")
	}
}

func TestAnalyze_DoesNotAdvanceCooldown(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()

	res, err := svc.Analyze(ctx, "rice")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Combo.Safe {
		t.Errorf("rice should be safe: %+v", res.Combo)
	}

	state, err := st.LoadCooldown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.LastS != nil {
		t.Error("Analyze must not change the cooldown")
	}
}

func TestListEntries_InvalidFilter(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ListEntries(context.Background(), "hungry")
	var vErr *ValidationFailedError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationFailedError", err)
	}
}

func TestListEntries_Filters(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "salad"}); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)
	if _, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "milk", Sick: true}); err != nil {
		t.Fatal(err)
	}

	sick, err := svc.ListEntries(ctx, types.FilterSick)
	if err != nil {
		t.Fatal(err)
	}
	if len(sick) != 1 || sick[0].Food != "milk" {
		t.Errorf("sick = %+v", sick)
	}
	all, err := svc.ListEntries(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}
}

func TestDeleteAndClearEntries(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "salad"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "kale"}); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteEntry(ctx, res.Entry.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := svc.DeleteEntry(ctx, res.Entry.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}

	n, err := svc.ClearEntries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("cleared %d, want 1", n)
	}
}

func TestAddFavorite(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	okay, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "Oatmeal", MealType: "Breakfast", SystolicBP: intPtr(121)})
	if err != nil {
		t.Fatal(err)
	}
	sick, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "milk", Sick: true})
	if err != nil {
		t.Fatal(err)
	}
	again, err := svc.AddEntry(ctx, types.NewEntryRequest{Food: "oatmeal"})
	if err != nil {
		t.Fatal(err)
	}

	fav, err := svc.AddFavorite(ctx, okay.Entry.ID)
	if err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}
	if fav.Food != "Oatmeal" || fav.MealType != types.MealBreakfast || fav.SystolicBP == nil || *fav.SystolicBP != 121 {
		t.Errorf("favorite did not copy the entry: %+v", fav)
	}

	if _, err := svc.AddFavorite(ctx, sick.Entry.ID); !errors.Is(err, ErrSickFavorite) {
		t.Errorf("sick favorite err = %v, want ErrSickFavorite", err)
	}
	if _, err := svc.AddFavorite(ctx, again.Entry.ID); !errors.Is(err, store.ErrDuplicateFavorite) {
		t.Errorf("duplicate favorite err = %v, want ErrDuplicateFavorite", err)
	}
	if _, err := svc.AddFavorite(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing entry err = %v, want ErrNotFound", err)
	}

	favs, err := svc.ListFavorites(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(favs) != 1 {
		t.Fatalf("len(favorites) = %d, want 1", len(favs))
	}
	if err := svc.DeleteFavorite(ctx, favs[0].ID); err != nil {
		t.Errorf("DeleteFavorite: %v", err)
	}
}
