package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/platewise/internal/advisor"
	"github.com/hyperengineering/platewise/internal/archive"
	"github.com/hyperengineering/platewise/internal/diary"
	"github.com/hyperengineering/platewise/internal/store"
	"github.com/hyperengineering/platewise/internal/types"
	"github.com/hyperengineering/platewise/internal/validation"
)

// Deps are the collaborators the handlers need. Narrator and Uploader may be
// nil; no-op implementations are used instead.
type Deps struct {
	Diary    *diary.Service
	Store    store.Store
	Advisor  *advisor.Advisor
	Narrator advisor.Narrator
	Uploader archive.Uploader
	APIKey   string
	Version  string

	// DeleteLimiter throttles the delete routes. Default: 100 requests,
	// one token back every 100ms.
	DeleteLimiter *DeleteRateLimiter
}

// Handler implements the API handlers
type Handler struct {
	diary    *diary.Service
	store    store.Store
	advisor  *advisor.Advisor
	narrator advisor.Narrator
	uploader archive.Uploader
	apiKey   string
	version  string

	deleteLimiter *DeleteRateLimiter
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		diary:    d.Diary,
		store:    d.Store,
		advisor:  d.Advisor,
		narrator: d.Narrator,
		uploader: d.Uploader,
		apiKey:   d.APIKey,
		version:  d.Version,

		deleteLimiter: d.DeleteLimiter,
	}
	if h.deleteLimiter == nil {
		h.deleteLimiter = NewDeleteRateLimiter(100, 100*time.Millisecond)
	}
	if h.advisor == nil {
		h.advisor = advisor.New(d.Diary.Engine().Rules())
	}
	if h.narrator == nil {
		h.narrator = advisor.NoopNarrator{}
	}
	if h.uploader == nil {
		h.uploader = &archive.NoopUploader{}
	}
	return h
}

// SuggestionsResponse is the body of GET /suggestions.
type SuggestionsResponse struct {
	Suggestions []advisor.Suggestion `json:"suggestions"`
	Summary     string               `json:"summary"`
	Model       string               `json:"model"`
}

// ArchiveLinkResponse is the body of GET /archive/{date}.
type ArchiveLinkResponse struct {
	Date      string    `json:"date"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		slog.Error("health check failed", "component", "api", "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	cooldown, err := h.diary.Engine().Cooldown(r.Context())
	if err != nil {
		slog.Error("health check failed", "component", "api", "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:         "healthy",
		Version:        h.version,
		EntryCount:     stats.EntryCount,
		FavoriteCount:  stats.FavoriteCount,
		CooldownWindow: h.diary.Engine().Window().String(),
		Cooldown:       cooldown,
	})
}

// Analyze handles POST /api/v1/analyze. Nothing is logged and the cooldown
// is left untouched.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.diary.Analyze(r.Context(), req.Food)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddEntry handles POST /api/v1/entries
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req types.NewEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.diary.AddEntry(r.Context(), req)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ListEntries handles GET /api/v1/entries?filter=all|sick|okay
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter := types.EntryFilter(r.URL.Query().Get("filter"))

	entries, err := h.diary.ListEntries(r.Context(), filter)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// DeleteEntry handles DELETE /api/v1/entries/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.diary.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearEntries handles DELETE /api/v1/entries
func (h *Handler) ClearEntries(w http.ResponseWriter, r *http.Request) {
	n, err := h.diary.ClearEntries(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ClearResult{Deleted: n})
}

// ListFavorites handles GET /api/v1/favorites
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.diary.ListFavorites(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

// AddFavorite handles POST /api/v1/favorites
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req types.FavoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var c validation.Collector
	if err := validation.ValidateRequired("entry_id", req.EntryID); err != nil {
		c.Add(err)
	} else {
		c.Add(validation.ValidateULID("entry_id", req.EntryID))
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	fav, err := h.diary.AddFavorite(r.Context(), req.EntryID)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

// DeleteFavorite handles DELETE /api/v1/favorites/{id}
func (h *Handler) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.diary.DeleteFavorite(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Suggestions handles GET /api/v1/suggestions. A narration failure falls
// back to the plain suggestions.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.diary.ListEntries(r.Context(), types.FilterAll)
	if err != nil {
		MapError(w, r, err)
		return
	}

	suggestions := h.advisor.Suggest(entries)
	summary, err := h.narrator.Narrate(r.Context(), suggestions)
	if err != nil {
		slog.Warn("narration failed",
			"component", "api",
			"action", "suggestions",
			"model", h.narrator.ModelName(),
			"error", err,
		)
		summary, _ = advisor.NoopNarrator{}.Narrate(r.Context(), suggestions)
	}

	if suggestions == nil {
		suggestions = []advisor.Suggestion{}
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{
		Suggestions: suggestions,
		Summary:     summary,
		Model:       h.narrator.ModelName(),
	})
}

// Charts handles GET /api/v1/charts?day=YYYY-MM-DD
func (h *Handler) Charts(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day != "" {
		if err := validation.ValidateDate("day", day, types.DateLayout); err != nil {
			WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{*err})
			return
		}
	}

	charts, err := h.diary.Charts(r.Context(), day)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charts)
}

// Export handles POST /api/v1/export and returns the report as an attachment.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req types.ExportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	export, err := h.diary.Export(r.Context(), req)
	if err != nil {
		MapError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Body); err != nil {
		slog.Warn("export write failed", "component", "api", "error", err)
	}
}

// ArchiveLink handles GET /api/v1/archive/{date}
func (h *Handler) ArchiveLink(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if err := validation.ValidateDate("date", date, types.DateLayout); err != nil {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{*err})
		return
	}

	link, expiry, err := h.uploader.PresignedURL(r.Context(), date)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ArchiveLinkResponse{Date: date, URL: link, ExpiresAt: expiry.UTC()})
}

// Ruleset handles GET /api/v1/ruleset
func (h *Handler) Ruleset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.diary.Engine().Rules())
}

// decodeJSON decodes the request body into v, writing a 400 problem on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
