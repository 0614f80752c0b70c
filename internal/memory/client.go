package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mamakokoro/kokoro/internal/triage"
	"github.com/mamakokoro/kokoro/pkg/logging"
)

var memoryTracer = otel.Tracer("kokoro/memory")

const (
	defaultBaseURL = "https://api.memu.so"
	defaultTimeout = 10 * time.Second

	// PersonalizedContext folds at most this many memory items into the
	// prompt to bound prompt growth.
	contextItemCap = 5
)

// ErrNotConfigured is returned when no API key is set. Callers on the
// enrichment path treat it like any other provider failure.
var ErrNotConfigured = errors.New("memory: api key not configured")

// Item is one memory record created directly.
type Item struct {
	Type       string         `json:"memory_type"`
	Content    string         `json:"memory_content"`
	Categories []string       `json:"memory_categories"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RetrievedItem is one memory returned by retrieval.
type RetrievedItem struct {
	ID         string   `json:"id"`
	Summary    string   `json:"summary"`
	Type       string   `json:"memory_type"`
	Categories []string `json:"categories"`
	Score      float64  `json:"score,omitempty"`
}

// CategorySummary is a rolled-up view of one memory category.
type CategorySummary struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// RetrieveResult holds items and category summaries relevant to a query.
type RetrieveResult struct {
	Items      []RetrievedItem   `json:"items"`
	Categories []CategorySummary `json:"categories"`
}

// ScreeningRecord captures one EPDS submission for archival.
type ScreeningRecord struct {
	Answers       triage.ScreeningResponse
	TotalScore    int
	SelfHarmScore int
	Level         triage.RiskLevel
	Timestamp     time.Time
}

// MoodEntry is one mood log line.
type MoodEntry struct {
	Value     int
	Label     string
	Note      string
	SleepHrs  float64
	Timestamp time.Time
}

// JournalEntry is one free-text journal submission.
type JournalEntry struct {
	Content   string
	Mood      string
	Gratitude string
	Timestamp time.Time
}

// Client talks to the memU memory API. Every method tolerates the provider
// being unreachable; only the enrichment helper swallows errors itself.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a memory client. An empty baseURL falls back to the
// hosted endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logging.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

func (c *Client) post(ctx context.Context, endpoint string, body any, out any) error {
	if !c.configured() {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("memory: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("memory: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("memory: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("memory: api error %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("memory: failed to decode response: %w", err)
	}
	return nil
}

// Memorize submits free text for category extraction.
func (c *Client) Memorize(ctx context.Context, content, userID, modality string) error {
	if modality == "" {
		modality = "conversation"
	}
	return c.post(ctx, "/api/v3/memory/memorize", map[string]any{
		"resource_content": content,
		"modality":         modality,
		"user_id":          userID,
		"memorize_config": map[string]any{
			"memory_categories": PerinatalCategories,
		},
	}, nil)
}

// CreateItem writes one memory record directly.
func (c *Client) CreateItem(ctx context.Context, item Item, userID string) error {
	meta := item.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return c.post(ctx, "/api/v3/memory/items", map[string]any{
		"memory_type":       item.Type,
		"memory_content":    item.Content,
		"memory_categories": item.Categories,
		"user_id":           userID,
		"metadata":          meta,
	}, nil)
}

// Retrieve fetches memories relevant to a query. A failed call returns an
// empty result and the error; enrichment callers drop the error.
func (c *Client) Retrieve(ctx context.Context, query, userID, method string, limit int) (RetrieveResult, error) {
	if method == "" {
		method = "rag"
	}
	if limit <= 0 {
		limit = contextItemCap
	}

	var result RetrieveResult
	err := c.post(ctx, "/api/v3/memory/retrieve", map[string]any{
		"queries": []map[string]string{{"role": "user", "content": query}},
		"method":  method,
		"user_id": userID,
		"limit":   limit,
	}, &result)
	if err != nil {
		return RetrieveResult{}, err
	}
	return result, nil
}

// PersonalizedContext formats memories relevant to the current message into
// a bounded prompt block. Best-effort: any provider failure logs a warning
// and yields the empty string, never an error.
func (c *Client) PersonalizedContext(ctx context.Context, userID, message string) string {
	ctx, span := memoryTracer.Start(ctx, "memory.personalized_context")
	defer span.End()

	result, err := c.Retrieve(ctx, message, userID, "rag", contextItemCap)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("memory context retrieval skipped", "error", err, "user_id", userID)
		return ""
	}
	if len(result.Items) == 0 && len(result.Categories) == 0 {
		return ""
	}
	span.SetAttributes(attribute.Int("memory.items", len(result.Items)))

	var b strings.Builder
	b.WriteString("\n\n**Relevant memories about this mother:**\n")
	for _, cat := range result.Categories {
		if cat.Summary != "" {
			fmt.Fprintf(&b, "- [%s]: %s\n", cat.Name, cat.Summary)
		}
	}
	items := result.Items
	if len(items) > contextItemCap {
		items = items[:contextItemCap]
	}
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item.Summary)
	}
	return b.String()
}

// StoreConversation archives one chat exchange. The assistant text is
// truncated; the provider summarizes, it does not need the full response.
func (c *Client) StoreConversation(ctx context.Context, userID, userMessage, response string, level triage.RiskLevel) error {
	summary := response
	if len(summary) > 200 {
		summary = summary[:200] + "..."
	}
	content := fmt.Sprintf("User said: %q\nKokoro responded about: %s\nCrisis level: %s", userMessage, summary, level.Code())
	return c.Memorize(ctx, content, userID, "conversation")
}

// StoreScreening archives one EPDS result as a screening-history memory.
func (c *Client) StoreScreening(ctx context.Context, userID string, rec ScreeningRecord) error {
	assessment := "Score within normal range."
	if rec.TotalScore >= 9 {
		assessment = "Score indicates possible PPD — professional follow-up recommended."
	}
	content := fmt.Sprintf(
		"EPDS screening on %s: Total score %d/30. Crisis level: %s. Item 10 (self-harm): %d/3. %s",
		rec.Timestamp.Format(time.RFC3339), rec.TotalScore, rec.Level.Code(), rec.SelfHarmScore, assessment,
	)
	return c.CreateItem(ctx, Item{
		Type:       "profile",
		Content:    content,
		Categories: []string{"screening_history"},
		Metadata: map[string]any{
			"type":       "epds_screening",
			"totalScore": rec.TotalScore,
			"item10":     rec.SelfHarmScore,
			"crisis":     rec.Level.Code(),
			"timestamp":  rec.Timestamp.Format(time.RFC3339),
		},
	}, userID)
}

// StoreClinicalFlag writes the follow-up memory for an elevated screening,
// naming the highest-concern items.
func (c *Client) StoreClinicalFlag(ctx context.Context, userID string, rec ScreeningRecord) error {
	content := fmt.Sprintf(
		"EPDS score of %d on %s indicates possible postpartum depression. Crisis level: %s. Professional consultation recommended. Areas of highest concern: %s.",
		rec.TotalScore, rec.Timestamp.Format(time.RFC3339), rec.Level.Code(), triage.ConcernAreas(rec.Answers),
	)
	return c.CreateItem(ctx, Item{
		Type:       "profile",
		Content:    content,
		Categories: []string{"screening_history", "personal_context"},
		Metadata: map[string]any{
			"type":       "clinical_flag",
			"totalScore": rec.TotalScore,
			"crisis":     rec.Level.Code(),
			"timestamp":  rec.Timestamp.Format(time.RFC3339),
		},
	}, userID)
}

// StoreMoodEntry archives one mood log line.
func (c *Client) StoreMoodEntry(ctx context.Context, userID string, entry MoodEntry) error {
	sleep := "not recorded"
	if entry.SleepHrs > 0 {
		sleep = fmt.Sprintf("%.1f", entry.SleepHrs)
	}
	content := fmt.Sprintf("Mood entry on %s: Feeling %s (%d/5). Sleep: %s hours.",
		entry.Timestamp.Format(time.RFC3339), entry.Label, entry.Value, sleep)
	if entry.Note != "" {
		content += " Note: " + entry.Note
	}
	return c.CreateItem(ctx, Item{
		Type:       "profile",
		Content:    content,
		Categories: []string{"mood_patterns"},
		Metadata: map[string]any{
			"type":      "mood_entry",
			"value":     entry.Value,
			"label":     entry.Label,
			"sleep":     entry.SleepHrs,
			"timestamp": entry.Timestamp.Format(time.RFC3339),
		},
	}, userID)
}

// StoreJournalEntry archives one journal submission.
func (c *Client) StoreJournalEntry(ctx context.Context, userID string, entry JournalEntry) error {
	content := fmt.Sprintf("Journal entry on %s: %s", entry.Timestamp.Format(time.RFC3339), entry.Content)
	if entry.Mood != "" {
		content += " Mood: " + entry.Mood + "."
	}
	if entry.Gratitude != "" {
		content += " Grateful for: " + entry.Gratitude + "."
	}
	return c.CreateItem(ctx, Item{
		Type:       "profile",
		Content:    content,
		Categories: []string{"conversation_insights", "mood_patterns"},
		Metadata: map[string]any{
			"type":      "journal_entry",
			"mood":      entry.Mood,
			"timestamp": entry.Timestamp.Format(time.RFC3339),
		},
	}, userID)
}

// ScreeningHistory returns screening-related memory summaries for a user.
func (c *Client) ScreeningHistory(ctx context.Context, userID string) ([]string, error) {
	result, err := c.Retrieve(ctx, "What are the EPDS screening scores and history?", userID, "rag", 10)
	if err != nil {
		return nil, err
	}
	var history []string
	for _, item := range result.Items {
		lower := strings.ToLower(item.Summary)
		if strings.Contains(lower, "epds") || strings.Contains(lower, "screening") {
			history = append(history, item.Summary)
		}
	}
	return history, nil
}

// MoodTrend summarizes recent mood-related memories in one line.
func (c *Client) MoodTrend(ctx context.Context, userID string) (string, error) {
	result, err := c.Retrieve(ctx, "What are the recent mood patterns and emotional trends?", userID, "rag", 10)
	if err != nil {
		return "", err
	}
	if len(result.Items) == 0 {
		return "No mood data recorded yet.", nil
	}
	var moods []string
	for _, item := range result.Items {
		lower := strings.ToLower(item.Summary)
		if strings.Contains(lower, "mood") || strings.Contains(lower, "feeling") {
			moods = append(moods, item.Summary)
		}
	}
	if len(moods) == 0 {
		return "Limited mood data available.", nil
	}
	return "Recent mood patterns: " + strings.Join(moods, "; "), nil
}

// JournalInsights returns thematic summaries drawn from journal memories.
func (c *Client) JournalInsights(ctx context.Context, userID string) ([]string, []CategorySummary, error) {
	result, err := c.Retrieve(ctx, "What are the key themes and insights from journal entries?", userID, "rag", 10)
	if err != nil {
		return nil, nil, err
	}
	insights := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		insights = append(insights, item.Summary)
	}
	return insights, result.Categories, nil
}

// ListCategories returns the user's memory categories.
func (c *Client) ListCategories(ctx context.Context, userID string) ([]CategorySummary, error) {
	var out struct {
		Categories []CategorySummary `json:"categories"`
	}
	if err := c.post(ctx, "/api/v3/memory/categories", map[string]any{"user_id": userID}, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// ListItems returns the user's memory items, optionally filtered by
// category.
func (c *Client) ListItems(ctx context.Context, userID, category string) ([]RetrievedItem, error) {
	body := map[string]any{"user_id": userID}
	if category != "" {
		body["where"] = map[string]string{"category": category}
	}
	var out struct {
		Items []RetrievedItem `json:"items"`
	}
	if err := c.post(ctx, "/api/v3/memory/items/list", body, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
