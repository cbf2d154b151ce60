package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/platewise/internal/advisor"
	"github.com/hyperengineering/platewise/internal/diary"
	"github.com/hyperengineering/platewise/internal/engine"
	"github.com/hyperengineering/platewise/internal/moderation"
	"github.com/hyperengineering/platewise/internal/store"
	"github.com/hyperengineering/platewise/internal/types"
)

// --- Test fixtures ---

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// failingStatsStore is a store whose GetStats always fails.
type failingStatsStore struct {
	store.Store
}

func (failingStatsStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	return nil, errors.New("disk on fire")
}

// mockNarrator implements advisor.Narrator for testing.
type mockNarrator struct {
	summary string
	err     error
}

func (m *mockNarrator) Narrate(ctx context.Context, s []advisor.Suggestion) (string, error) {
	return m.summary, m.err
}

func (m *mockNarrator) ModelName() string { return "mock-model" }

// mockUploader implements archive.Uploader for testing.
type mockUploader struct{}

func (mockUploader) Upload(ctx context.Context, date string, body []byte, contentType string) error {
	return nil
}

func (mockUploader) PresignedURL(ctx context.Context, date string) (string, time.Time, error) {
	return "https://s3.example.com/reports/" + date + "/report.html?sig=abc", time.Date(2024, 3, 1, 12, 15, 0, 0, time.UTC), nil
}

type testEnv struct {
	router http.Handler
	clock  *fakeClock
	store  *store.SQLiteStore
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "diary.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)}
	eng := engine.New(nil, st, engine.WithClock(clock.Now))
	svc := diary.NewService(st, eng, diary.WithClock(clock.Now), diary.WithModerator(moderation.New(nil)))

	deps := Deps{Diary: svc, Store: st, Version: "test"}
	if mutate != nil {
		mutate(&deps)
	}
	return &testEnv{router: NewRouter(NewHandler(deps)), clock: clock, store: st}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

func (e *testEnv) addEntry(t *testing.T, body string) types.AddEntryResult {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/entries", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /entries status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[types.AddEntryResult](t, w)
}

// --- Health ---

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addEntry(t, `{"food":"rice"}`)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	resp := decode[types.HealthResponse](t, w)
	if resp.Status != "healthy" || resp.Version != "test" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.EntryCount != 1 {
		t.Errorf("EntryCount = %d, want 1", resp.EntryCount)
	}
	if resp.CooldownWindow != "3h0m0s" {
		t.Errorf("CooldownWindow = %q, want 3h0m0s", resp.CooldownWindow)
	}
	if resp.Cooldown.LastS == nil || resp.Cooldown.LastP != nil {
		t.Errorf("Cooldown = %+v, want only LastS set", resp.Cooldown)
	}
}

func TestHealth_StoreError(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Store = failingStatsStore{d.Store} })

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "disk on fire") {
		t.Error("internal error details must not leak")
	}
}

// --- Entries ---

func TestAddEntry_CooldownSequence(t *testing.T) {
	env := newTestEnv(t, nil)

	first := env.addEntry(t, `{"food":"rice","meal_type":"Lunch"}`)
	if !first.Analysis.Combo.Safe {
		t.Fatalf("rice should be safe: %+v", first.Analysis.Combo)
	}
	if first.Entry.MealType != types.MealLunch || first.Entry.Date != "2024-03-01" {
		t.Errorf("entry = %+v", first.Entry)
	}

	env.clock.Advance(time.Hour)
	second := env.addEntry(t, `{"food":"chicken"}`)
	combo := second.Analysis.Combo
	if combo.Safe || combo.Warning == nil {
		t.Fatalf("chicken an hour after rice should be unsafe: %+v", combo)
	}
	if want := "Wait 120 minutes before eating P after S"; *combo.Warning != want {
		t.Errorf("warning = %q, want %q", *combo.Warning, want)
	}
	if combo.Timing == nil || combo.Timing.ConflictType != engine.ConflictPAfterS {
		t.Errorf("timing = %+v", combo.Timing)
	}

	// Unsafe entries are still logged.
	entries := decode[[]types.Entry](t, env.do(t, http.MethodGet, "/api/v1/entries", ""))
	if len(entries) != 2 {
		t.Errorf("len(entries) = %d, want 2", len(entries))
	}
}

func TestAddEntry_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"empty food", `{"food":"   "}`, "food"},
		{"blocked phrase", `{"food":"sh1t sandwich"}`, "food"},
		{"bp too low", `{"food":"rice","bps":10}`, "bps"},
		{"bad meal type", `{"food":"rice","meal_type":"Brunch"}`, "meal_type"},
		{"bad bowel score", `{"food":"rice","bs":"9"}`, "bs"},
		{"bad date", `{"food":"rice","date":"03/01/2024"}`, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/entries", tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422 (body %s)", w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q", ct)
			}
			p := decode[ProblemWithErrors](t, w)
			if len(p.Errors) == 0 || p.Errors[0].Field != tt.wantField {
				t.Errorf("errors = %+v, want field %q", p.Errors, tt.wantField)
			}
		})
	}
}

func TestAddEntry_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/entries", `{"food":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAnalyze_DoesNotLog(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/analyze", `{"food":"rice and chicken"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[types.AnalyzeResponse](t, w)
	if resp.Combo.Safe || resp.Combo.Warning == nil || *resp.Combo.Warning != engine.WarningCombination {
		t.Errorf("combo = %+v, want S + P warning", resp.Combo)
	}

	entries := decode[[]types.Entry](t, env.do(t, http.MethodGet, "/api/v1/entries", ""))
	if len(entries) != 0 {
		t.Errorf("analyze must not log entries, got %d", len(entries))
	}

	state, err := env.store.LoadCooldown(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state.LastS != nil || state.LastP != nil {
		t.Errorf("analyze must not advance the cooldown: %+v", state)
	}
}

func TestListEntries_Filter(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addEntry(t, `{"food":"oatmeal","sick":true}`)
	env.addEntry(t, `{"food":"banana"}`)

	tests := []struct {
		filter string
		want   int
	}{
		{"", 2},
		{"all", 2},
		{"sick", 1},
		{"okay", 1},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodGet, "/api/v1/entries?filter="+tt.filter, "")
		if w.Code != http.StatusOK {
			t.Fatalf("filter %q: status = %d", tt.filter, w.Code)
		}
		if got := decode[[]types.Entry](t, w); len(got) != tt.want {
			t.Errorf("filter %q: len = %d, want %d", tt.filter, len(got), tt.want)
		}
	}

	if w := env.do(t, http.MethodGet, "/api/v1/entries?filter=meh", ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid filter status = %d, want 422", w.Code)
	}
}

func TestDeleteAndClearEntries(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.addEntry(t, `{"food":"banana"}`)
	env.addEntry(t, `{"food":"apple"}`)
	env.addEntry(t, `{"food":"pear"}`)

	if w := env.do(t, http.MethodDelete, "/api/v1/entries/"+first.Entry.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/entries/"+first.Entry.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}

	w := env.do(t, http.MethodDelete, "/api/v1/entries", "")
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}
	if got := decode[types.ClearResult](t, w); got.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", got.Deleted)
	}
}

// --- Favorites ---

func TestFavorites(t *testing.T) {
	env := newTestEnv(t, nil)
	fine := env.addEntry(t, `{"food":"Banana"}`)
	sick := env.addEntry(t, `{"food":"oatmeal","sick":true}`)

	w := env.do(t, http.MethodPost, "/api/v1/favorites", `{"entry_id":"`+fine.Entry.ID+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add favorite status = %d, body %s", w.Code, w.Body.String())
	}
	fav := decode[types.Favorite](t, w)
	if fav.Food != "Banana" || fav.EntryID != fine.Entry.ID {
		t.Errorf("favorite = %+v", fav)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate", `{"entry_id":"` + fine.Entry.ID + `"}`, http.StatusConflict},
		{"sick entry", `{"entry_id":"` + sick.Entry.ID + `"}`, http.StatusUnprocessableEntity},
		{"missing id", `{}`, http.StatusUnprocessableEntity},
		{"not a ulid", `{"entry_id":"nope"}`, http.StatusUnprocessableEntity},
		{"unknown entry", `{"entry_id":"01ARZ3NDEKTSV4RRFFQ69G5FAV"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, http.MethodPost, "/api/v1/favorites", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	favs := decode[[]types.Favorite](t, env.do(t, http.MethodGet, "/api/v1/favorites", ""))
	if len(favs) != 1 {
		t.Fatalf("len(favorites) = %d, want 1", len(favs))
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/favorites/"+fav.ID, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete favorite status = %d, want 204", w.Code)
	}
}

// --- Suggestions ---

func TestSuggestions(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Narrator = &mockNarrator{summary: "Go easy on oatmeal."} })
	env.addEntry(t, `{"food":"Oatmeal","sick":true}`)
	env.addEntry(t, `{"food":"oatmeal","sick":true}`)

	w := env.do(t, http.MethodGet, "/api/v1/suggestions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[SuggestionsResponse](t, w)
	if len(resp.Suggestions) == 0 || resp.Suggestions[0].Kind != advisor.KindAvoid || resp.Suggestions[0].Count != 2 {
		t.Errorf("suggestions = %+v", resp.Suggestions)
	}
	if resp.Summary != "Go easy on oatmeal." || resp.Model != "mock-model" {
		t.Errorf("summary = %q model = %q", resp.Summary, resp.Model)
	}
}

func TestSuggestions_NarratorFailureFallsBack(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Narrator = &mockNarrator{err: errors.New("rate limited")} })
	env.addEntry(t, `{"food":"banana"}`)
	env.addEntry(t, `{"food":"banana"}`)

	resp := decode[SuggestionsResponse](t, env.do(t, http.MethodGet, "/api/v1/suggestions", ""))
	if resp.Summary != "You've eaten banana 2 times and felt fine." {
		t.Errorf("Summary = %q, want plain fallback", resp.Summary)
	}
}

func TestSuggestions_Empty(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/v1/suggestions", "")
	if !strings.Contains(w.Body.String(), `"suggestions":[]`) {
		t.Errorf("empty suggestions should encode as [], got %s", w.Body.String())
	}
}

// --- Charts, export, archive, ruleset ---

func TestCharts(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addEntry(t, `{"food":"rice","bps":120,"meal_type":"Breakfast"}`)

	w := env.do(t, http.MethodGet, "/api/v1/charts?day=2024-03-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	charts := decode[diary.Charts](t, w)
	if charts.Day != "2024-03-01" || len(charts.BloodPressure) != 1 {
		t.Errorf("charts = %+v", charts)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/charts?day=yesterday", ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid day status = %d, want 422", w.Code)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, nil)

	if w := env.do(t, http.MethodPost, "/api/v1/export", `{"password":"pw"}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty diary export status = %d, want 422", w.Code)
	}

	env.addEntry(t, `{"food":"Cheeseburger"}`)

	w := env.do(t, http.MethodPost, "/api/v1/export", `{"password":"pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="HealthReport.html"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if strings.Contains(w.Body.String(), "Cheeseburger") {
		t.Error("html export must be encrypted")
	}

	w = env.do(t, http.MethodPost, "/api/v1/export", `{}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing password status = %d, want 422", w.Code)
	}
	if p := decode[ProblemWithErrors](t, w); len(p.Errors) != 1 || p.Errors[0].Field != "password" {
		t.Errorf("errors = %+v", p.Errors)
	}

	w = env.do(t, http.MethodPost, "/api/v1/export", `{"format":"csv"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Cheeseburger") {
		t.Errorf("csv export status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestArchiveLink(t *testing.T) {
	env := newTestEnv(t, nil)
	if w := env.do(t, http.MethodGet, "/api/v1/archive/2024-03-01", ""); w.Code != http.StatusNotFound {
		t.Errorf("unconfigured archive status = %d, want 404", w.Code)
	}

	env = newTestEnv(t, func(d *Deps) { d.Uploader = mockUploader{} })
	w := env.do(t, http.MethodGet, "/api/v1/archive/2024-03-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[ArchiveLinkResponse](t, w)
	if !strings.Contains(resp.URL, "reports/2024-03-01/report.html") || resp.ExpiresAt.IsZero() {
		t.Errorf("resp = %+v", resp)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/archive/latest", ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid date status = %d, want 422", w.Code)
	}
}

func TestRuleset(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/v1/ruleset", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"lists", "synonyms", "dishes"} {
		if _, ok := body[key]; !ok {
			t.Errorf("ruleset missing %q", key)
		}
	}
}

// --- Router wiring ---

func TestRouter_NoKeyMeansOpen(t *testing.T) {
	env := newTestEnv(t, nil)
	if w := env.do(t, http.MethodGet, "/api/v1/entries", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 without a configured key", w.Code)
	}
}
