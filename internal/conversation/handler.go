package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mamakokoro/kokoro/internal/http/middleware"
	"github.com/mamakokoro/kokoro/internal/memory"
	"github.com/mamakokoro/kokoro/internal/observability/metrics"
	"github.com/mamakokoro/kokoro/internal/triage"
	"github.com/mamakokoro/kokoro/pkg/logging"
)

// ScreeningStore is the Memory Provider surface the screening endpoints need.
type ScreeningStore interface {
	StoreScreening(ctx context.Context, userID string, rec memory.ScreeningRecord) error
	StoreClinicalFlag(ctx context.Context, userID string, rec memory.ScreeningRecord) error
	ScreeningHistory(ctx context.Context, userID string) ([]string, error)
}

// Handler exposes the chat and screening endpoints.
type Handler struct {
	composer    *Composer
	transcripts *TranscriptStore
	screenings  ScreeningStore
	metrics     *metrics.ChatMetrics
	logger      *logging.Logger
}

// NewHandler creates the conversation HTTP handler.
func NewHandler(composer *Composer, transcripts *TranscriptStore, screenings ScreeningStore, m *metrics.ChatMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		composer:    composer,
		transcripts: transcripts,
		screenings:  screenings,
		metrics:     m,
		logger:      logger,
	}
}

type chatRequest struct {
	Message      string `json:"message"`
	CrisisLevel  string `json:"crisisLevel"`
	Phase        string `json:"phase"`
	PhaseContext struct {
		PregnancyWeeks int    `json:"pregnancyWeeks"`
		DueDate        string `json:"dueDate"`
	} `json:"phaseContext"`
}

func (req chatRequest) toTurn(userID string) TurnRequest {
	return TurnRequest{
		UserID:  userID,
		Message: req.Message,
		Phase:   Phase(req.Phase),
		PhaseContext: PhaseContext{
			PregnancyWeeks: req.PhaseContext.PregnancyWeeks,
			DueDate:        req.PhaseContext.DueDate,
		},
		CrisisHint: req.CrisisLevel,
	}
}

// flushWriter relays chunks to the HTTP response, flushing after each so the
// client sees tokens as they arrive.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw *flushWriter) WriteChunk(chunk string) error {
	if _, err := fw.w.Write([]byte(chunk)); err != nil {
		return err
	}
	if fw.f != nil {
		fw.f.Flush()
	}
	return nil
}

// Stream handles POST /chat/stream: a full composed turn relayed as
// text/plain chunks.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	result := h.composer.ComposeTurn(r.Context(), req.toTurn(userID), &flushWriter{w: w, f: flusher})

	h.appendTranscript(userID, req.Message, result)
}

type messageResponse struct {
	Steps           string           `json:"steps"`
	CrisisLevel     triage.RiskLevel `json:"crisisLevel"`
	OriginalMessage string           `json:"originalMessage"`
}

// Message handles POST /chat/message: the non-streaming deterministic
// composition.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result := h.composer.ComposeMessage(r.Context(), req.toTurn(userID))
	h.appendTranscript(userID, req.Message, result)

	writeJSON(w, http.StatusOK, map[string]any{
		"response": messageResponse{
			Steps:           result.Response,
			CrisisLevel:     result.RiskLevel,
			OriginalMessage: req.Message,
		},
	})
}

// Conversations handles GET /chat/conversations.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	entries, err := h.transcripts.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("transcript lookup failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to fetch conversations")
		return
	}
	if entries == nil {
		entries = []TranscriptEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": entries})
}

type epdsRequest struct {
	Answers     []int  `json:"answers"`
	CrisisLevel string `json:"crisisLevel"`
}

// SubmitEPDS handles POST /screening/epds. The classification is recomputed
// server-side; the client's value is never trusted.
func (h *Handler) SubmitEPDS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	var req epdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answers := triage.ScreeningResponse(req.Answers)
	level, err := triage.ClassifyScreening(answers)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.metrics.ObserveScreening(level.String())

	rec := memory.ScreeningRecord{
		Answers:       answers,
		TotalScore:    answers.Total(),
		SelfHarmScore: answers.SelfHarmScore(),
		Level:         level,
		Timestamp:     time.Now().UTC(),
	}

	stored := true
	if err := h.screenings.StoreScreening(r.Context(), userID, rec); err != nil {
		stored = false
		h.logger.Warn("screening archival skipped", "error", err, "user_id", userID)
	}
	if rec.TotalScore >= 9 {
		if err := h.screenings.StoreClinicalFlag(r.Context(), userID, rec); err != nil {
			h.logger.Warn("clinical flag archival skipped", "error", err, "user_id", userID)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result": map[string]any{
			"totalScore":  rec.TotalScore,
			"item10Score": rec.SelfHarmScore,
			"crisisLevel": level,
			"timestamp":   rec.Timestamp.Format(time.RFC3339),
		},
		"memoryStored": stored,
	})
}

// ScreeningHistory handles GET /screening/history.
func (h *Handler) ScreeningHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	history, err := h.screenings.ScreeningHistory(r.Context(), userID)
	if err != nil {
		h.logger.Error("screening history lookup failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to get screening history")
		return
	}
	if history == nil {
		history = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "history": history})
}

type phq2Request struct {
	Answers []int `json:"answers"`
}

// SubmitPHQ2 handles POST /screening/phq2, the two-question quick screen.
func (h *Handler) SubmitPHQ2(w http.ResponseWriter, r *http.Request) {
	var req phq2Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	positive, err := triage.ClassifyPHQ2(req.Answers)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recommendation := "No further screening indicated right now."
	if positive {
		recommendation = "A full EPDS self-check is recommended."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positive":       positive,
		"recommendEPDS":  positive,
		"recommendation": recommendation,
	})
}

// appendTranscript records the turn in the Redis history view. Best effort;
// the durable record already went to the archive queue.
func (h *Handler) appendTranscript(userID, message string, result TurnResult) {
	if h.transcripts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := h.transcripts.Append(ctx, userID, TranscriptEntry{
		Message:   message,
		Response:  result.Response,
		RiskLevel: result.RiskLevel,
	})
	if err != nil {
		h.logger.Warn("transcript append skipped", "error", err, "user_id", userID)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
