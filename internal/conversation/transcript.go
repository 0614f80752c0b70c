package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mamakokoro/kokoro/internal/triage"
)

const (
	transcriptTTL = 30 * 24 * time.Hour
	transcriptCap = 200
)

// TranscriptEntry is one archived turn in a user's conversation history.
type TranscriptEntry struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Response  string           `json:"response"`
	RiskLevel triage.RiskLevel `json:"crisisLevel"`
	CreatedAt time.Time        `json:"created_at"`
}

// TranscriptStore keeps per-user conversation history in Redis. History is a
// convenience view for the client; the durable record lives with the Memory
// Provider.
type TranscriptStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewTranscriptStore creates a Redis-backed transcript store.
func NewTranscriptStore(client *redis.Client, ttl time.Duration) *TranscriptStore {
	if ttl <= 0 {
		ttl = transcriptTTL
	}
	return &TranscriptStore{redis: client, ttl: ttl}
}

// Append records one turn at the head of the user's history, trims to the
// cap, and refreshes the TTL.
func (s *TranscriptStore) Append(ctx context.Context, userID string, entry TranscriptEntry) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal transcript entry: %w", err)
	}

	key := transcriptKey(userID)
	pipe := s.redis.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, transcriptCap-1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conversation: failed to persist transcript entry: %w", err)
	}
	return nil
}

// List returns the most recent turns, newest first.
func (s *TranscriptStore) List(ctx context.Context, userID string, limit int64) ([]TranscriptEntry, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	raw, err := s.redis.LRange(ctx, transcriptKey(userID), 0, limit-1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation: failed to load transcript: %w", err)
	}

	entries := make([]TranscriptEntry, 0, len(raw))
	for _, item := range raw {
		var entry TranscriptEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("conversation: failed to decode transcript entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func transcriptKey(userID string) string {
	return fmt.Sprintf("transcript:%s", userID)
}
