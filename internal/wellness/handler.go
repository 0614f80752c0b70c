// Package wellness exposes the mood and journal capture endpoints. Entries
// are written through the Memory Provider so later conversations can draw on
// them; there is no local persistence.
package wellness

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mamakokoro/kokoro/internal/http/middleware"
	"github.com/mamakokoro/kokoro/internal/memory"
	"github.com/mamakokoro/kokoro/pkg/logging"
)

// Store is the Memory Provider surface the wellness endpoints need.
type Store interface {
	StoreMoodEntry(ctx context.Context, userID string, entry memory.MoodEntry) error
	StoreJournalEntry(ctx context.Context, userID string, entry memory.JournalEntry) error
	CreateItem(ctx context.Context, item memory.Item, userID string) error
	MoodTrend(ctx context.Context, userID string) (string, error)
	JournalInsights(ctx context.Context, userID string) ([]string, []memory.CategorySummary, error)
}

// Handler serves the wellness routes.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates the wellness HTTP handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

type moodRequest struct {
	Value *int    `json:"value"`
	Label string  `json:"label"`
	Note  string  `json:"note"`
	Sleep float64 `json:"sleep"`
}

// SubmitMood handles POST /wellness/mood. A low mood with a note also files
// a trigger observation so patterns surface in later context retrieval.
func (h *Handler) SubmitMood(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	var req moodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Value == nil || req.Label == "" {
		writeError(w, http.StatusBadRequest, "mood value and label are required")
		return
	}
	if *req.Value < 1 || *req.Value > 5 {
		writeError(w, http.StatusBadRequest, "mood value must be between 1 and 5")
		return
	}

	entry := memory.MoodEntry{
		Value:     *req.Value,
		Label:     req.Label,
		Note:      req.Note,
		SleepHrs:  req.Sleep,
		Timestamp: time.Now().UTC(),
	}

	stored := true
	if err := h.store.StoreMoodEntry(r.Context(), userID, entry); err != nil {
		stored = false
		h.logger.Warn("mood entry archival skipped", "error", err, "user_id", userID)
	}

	if entry.Value <= 2 && entry.Note != "" {
		item := memory.Item{
			Type: "profile",
			Content: fmt.Sprintf("When feeling %s, the mother noted: %q. This may indicate a trigger or pattern worth tracking.",
				entry.Label, entry.Note),
			Categories: []string{"triggers", "mood_patterns"},
			Metadata: map[string]any{
				"type":       "trigger_observation",
				"mood_value": entry.Value,
				"timestamp":  entry.Timestamp.Format(time.RFC3339),
			},
		}
		if err := h.store.CreateItem(r.Context(), item, userID); err != nil {
			h.logger.Warn("trigger observation skipped", "error", err, "user_id", userID)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"entry": map[string]any{
			"value":     entry.Value,
			"label":     entry.Label,
			"note":      entry.Note,
			"sleep":     entry.SleepHrs,
			"timestamp": entry.Timestamp.Format(time.RFC3339),
		},
		"memoryStored": stored,
	})
}

// MoodTrend handles GET /wellness/mood/trend.
func (h *Handler) MoodTrend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	trend, err := h.store.MoodTrend(r.Context(), userID)
	if err != nil {
		h.logger.Error("mood trend lookup failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to get mood trend")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "trend": trend})
}

type journalRequest struct {
	Content   string `json:"content"`
	Mood      string `json:"mood"`
	Gratitude string `json:"gratitude"`
}

// SubmitJournal handles POST /wellness/journal. Gratitude, when present, is
// additionally filed as an active coping strategy.
func (h *Handler) SubmitJournal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	var req journalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "journal content is required")
		return
	}

	entry := memory.JournalEntry{
		Content:   req.Content,
		Mood:      req.Mood,
		Gratitude: req.Gratitude,
		Timestamp: time.Now().UTC(),
	}

	stored := true
	if err := h.store.StoreJournalEntry(r.Context(), userID, entry); err != nil {
		stored = false
		h.logger.Warn("journal entry archival skipped", "error", err, "user_id", userID)
	}

	if entry.Gratitude != "" {
		item := memory.Item{
			Type: "profile",
			Content: fmt.Sprintf("The mother expressed gratitude for: %q. Gratitude practice is an active coping strategy.",
				entry.Gratitude),
			Categories: []string{"coping_strategies"},
			Metadata: map[string]any{
				"type":      "gratitude_entry",
				"timestamp": entry.Timestamp.Format(time.RFC3339),
			},
		}
		if err := h.store.CreateItem(r.Context(), item, userID); err != nil {
			h.logger.Warn("gratitude memory skipped", "error", err, "user_id", userID)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"entry": map[string]any{
			"content":   entry.Content,
			"mood":      entry.Mood,
			"gratitude": entry.Gratitude,
			"timestamp": entry.Timestamp.Format(time.RFC3339),
		},
		"memoryStored": stored,
	})
}

// JournalInsights handles GET /wellness/journal/insights.
func (h *Handler) JournalInsights(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	insights, categories, err := h.store.JournalInsights(r.Context(), userID)
	if err != nil {
		h.logger.Error("journal insights lookup failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to get journal insights")
		return
	}
	if insights == nil {
		insights = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"insights":   insights,
		"categories": categories,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
