package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamakokoro/kokoro/internal/http/middleware"
	"github.com/mamakokoro/kokoro/internal/memory"
	"github.com/mamakokoro/kokoro/internal/triage"
)

type fakeScreenings struct {
	screenings []memory.ScreeningRecord
	flags      []memory.ScreeningRecord
	history    []string
	err        error
}

func (f *fakeScreenings) StoreScreening(_ context.Context, _ string, rec memory.ScreeningRecord) error {
	if f.err != nil {
		return f.err
	}
	f.screenings = append(f.screenings, rec)
	return nil
}

func (f *fakeScreenings) StoreClinicalFlag(_ context.Context, _ string, rec memory.ScreeningRecord) error {
	if f.err != nil {
		return f.err
	}
	f.flags = append(f.flags, rec)
	return nil
}

func (f *fakeScreenings) ScreeningHistory(_ context.Context, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

func newTestHandler(t *testing.T, providers []StreamProvider, screenings ScreeningStore) (*Handler, *recordingStore) {
	t.Helper()
	store := &recordingStore{}
	composer, _ := newTestComposer(t, providers, store, nil)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	transcripts := NewTranscriptStore(client, time.Hour)

	return NewHandler(composer, transcripts, screenings, nil, nil), store
}

func authedRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	return req.WithContext(middleware.WithUserID(req.Context(), "user-1"))
}

func TestStreamEndpointRelaysChunks(t *testing.T) {
	h, _ := newTestHandler(t, []StreamProvider{
		&fakeProvider{name: "primary", stream: newSliceStream("Hello ", "there.")},
	}, &fakeScreenings{})

	rec := httptest.NewRecorder()
	h.Stream(rec, authedRequest(http.MethodPost, "/chat/stream", map[string]string{"message": "good morning"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "Hello there.", rec.Body.String())
}

func TestStreamEndpointSafetyFirstForCrisis(t *testing.T) {
	h, _ := newTestHandler(t, []StreamProvider{
		&fakeProvider{name: "primary", stream: newSliceStream("generative tail")},
	}, &fakeScreenings{})

	rec := httptest.NewRecorder()
	h.Stream(rec, authedRequest(http.MethodPost, "/chat/stream", map[string]string{"message": "I want to hurt myself"}))

	body := rec.Body.String()
	safety := triage.SafetyMessage(triage.RiskCritical)
	require.True(t, strings.HasPrefix(body, safety), "safety message must lead the stream")
	assert.Contains(t, body, "\n---\n\n")
	assert.True(t, strings.Index(body, "generative tail") > strings.Index(body, "\n---\n\n"))
}

func TestStreamEndpointRequiresMessage(t *testing.T) {
	h, _ := newTestHandler(t, nil, &fakeScreenings{})

	rec := httptest.NewRecorder()
	h.Stream(rec, authedRequest(http.MethodPost, "/chat/stream", map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageEndpointShape(t *testing.T) {
	h, _ := newTestHandler(t, nil, &fakeScreenings{})

	rec := httptest.NewRecorder()
	h.Message(rec, authedRequest(http.MethodPost, "/chat/message", map[string]string{"message": "I feel hopeless"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Response struct {
			Steps           string `json:"steps"`
			CrisisLevel     string `json:"crisisLevel"`
			OriginalMessage string `json:"originalMessage"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "orange", payload.Response.CrisisLevel)
	assert.Equal(t, "I feel hopeless", payload.Response.OriginalMessage)
	assert.True(t, strings.HasPrefix(payload.Response.Steps, triage.SafetyMessage(triage.RiskElevated)))
}

func TestConversationsEndpointReturnsHistory(t *testing.T) {
	h, store := newTestHandler(t, []StreamProvider{
		&fakeProvider{name: "primary", stream: newSliceStream("a reply")},
	}, &fakeScreenings{})

	rec := httptest.NewRecorder()
	h.Stream(rec, authedRequest(http.MethodPost, "/chat/stream", map[string]string{"message": "hello"}))
	store.waitForCalls(t, 1)

	rec = httptest.NewRecorder()
	h.Conversations(rec, authedRequest(http.MethodGet, "/chat/conversations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Conversations []TranscriptEntry `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Conversations, 1)
	assert.Equal(t, "hello", payload.Conversations[0].Message)
	assert.Equal(t, "a reply", payload.Conversations[0].Response)
}

func TestSubmitEPDSRecomputesServerSide(t *testing.T) {
	screenings := &fakeScreenings{}
	h, _ := newTestHandler(t, nil, screenings)

	rec := httptest.NewRecorder()
	// Total 8 and item 10 scored 2: client may claim anything, the item-10
	// override decides.
	h.SubmitEPDS(rec, authedRequest(http.MethodPost, "/screening/epds", map[string]any{
		"answers":     []int{1, 1, 1, 1, 1, 1, 0, 0, 0, 2},
		"crisisLevel": "green",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Success bool `json:"success"`
		Result  struct {
			TotalScore  int    `json:"totalScore"`
			Item10Score int    `json:"item10Score"`
			CrisisLevel string `json:"crisisLevel"`
		} `json:"result"`
		MemoryStored bool `json:"memoryStored"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	assert.Equal(t, 8, payload.Result.TotalScore)
	assert.Equal(t, 2, payload.Result.Item10Score)
	assert.Equal(t, "red", payload.Result.CrisisLevel)
	assert.True(t, payload.MemoryStored)

	require.Len(t, screenings.screenings, 1)
	assert.Equal(t, triage.RiskCritical, screenings.screenings[0].Level)
	// Total below 9: no clinical flag.
	assert.Empty(t, screenings.flags)
}

func TestSubmitEPDSClinicalFlagAtThreshold(t *testing.T) {
	screenings := &fakeScreenings{}
	h, _ := newTestHandler(t, nil, screenings)

	rec := httptest.NewRecorder()
	h.SubmitEPDS(rec, authedRequest(http.MethodPost, "/screening/epds", map[string]any{
		"answers": []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 0},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, screenings.flags, 1)
	assert.Equal(t, 9, screenings.flags[0].TotalScore)
}

func TestSubmitEPDSRejectsInvalidAnswers(t *testing.T) {
	h, _ := newTestHandler(t, nil, &fakeScreenings{})

	tests := []struct {
		name    string
		answers []int
	}{
		{"too few", []int{1, 2, 3}},
		{"out of range high", []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 4}},
		{"negative", []int{-1, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.SubmitEPDS(rec, authedRequest(http.MethodPost, "/screening/epds", map[string]any{"answers": tt.answers}))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmitEPDSStoreFailureStillSucceeds(t *testing.T) {
	h, _ := newTestHandler(t, nil, &fakeScreenings{err: errors.New("memU down")})

	rec := httptest.NewRecorder()
	h.SubmitEPDS(rec, authedRequest(http.MethodPost, "/screening/epds", map[string]any{
		"answers": []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Success      bool `json:"success"`
		MemoryStored bool `json:"memoryStored"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	assert.False(t, payload.MemoryStored)
}

func TestScreeningHistoryEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, nil, &fakeScreenings{history: []string{"EPDS score of 14 on 2026-08-01"}})

	rec := httptest.NewRecorder()
	h.ScreeningHistory(rec, authedRequest(http.MethodGet, "/screening/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Success bool     `json:"success"`
		History []string `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	assert.Equal(t, []string{"EPDS score of 14 on 2026-08-01"}, payload.History)
}

func TestSubmitPHQ2(t *testing.T) {
	h, _ := newTestHandler(t, nil, &fakeScreenings{})

	tests := []struct {
		name     string
		answers  []int
		status   int
		positive bool
	}{
		{"positive at cutoff", []int{2, 1}, http.StatusOK, true},
		{"negative below cutoff", []int{1, 1}, http.StatusOK, false},
		{"wrong length", []int{1}, http.StatusBadRequest, false},
		{"out of range", []int{4, 0}, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.SubmitPHQ2(rec, authedRequest(http.MethodPost, "/screening/phq2", map[string]any{"answers": tt.answers}))
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			var payload struct {
				Positive      bool `json:"positive"`
				RecommendEPDS bool `json:"recommendEPDS"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, tt.positive, payload.Positive)
			assert.Equal(t, tt.positive, payload.RecommendEPDS)
		})
	}
}
