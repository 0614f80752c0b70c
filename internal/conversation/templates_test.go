package conversation

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectTopic(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Topic
	}{
		{"overwhelmed", "Everything is just too much right now", TopicOverwhelmed},
		{"sleep", "I'm so exhausted, the baby never sleeps", TopicSleep},
		{"sleep direct", "I barely sleep anymore", TopicSleep},
		{"anxiety", "I keep worrying something is wrong", TopicAnxiety},
		{"bonding", "I feel nothing when I hold her", TopicBonding},
		{"sadness", "I've been so sad all week", TopicSadness},
		{"default", "hello", TopicGeneral},
		{"case insensitive", "OVERWHELMED doesn't cover it", TopicOverwhelmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectTopic(tt.message))
		})
	}
}

func TestTopicOrderingOverwhelmedBeforeSleep(t *testing.T) {
	// Messages matching multiple topics resolve to the first listed.
	got := DetectTopic("I'm overwhelmed and tired")
	assert.Equal(t, TopicOverwhelmed, got)
}

func TestLocalResponseNeverEmpty(t *testing.T) {
	for _, msg := range []string{"", "hi", "I can't cope", "sleep", "random text 123"} {
		assert.NotEmpty(t, LocalResponse(msg))
	}
}

func TestLocalResponderStreamsFullResponse(t *testing.T) {
	responder := LocalResponder{}
	stream, err := responder.StreamGenerate(context.Background(), "I can't stop crying, so sad")
	require.NoError(t, err)
	defer stream.Close()

	var out string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out += chunk
	}
	assert.Equal(t, LocalResponse("I can't stop crying, so sad"), out)
}
