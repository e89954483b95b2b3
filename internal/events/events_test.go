package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationSettledRoundTrip(t *testing.T) {
	genID := uuid.New()
	event := GenerationSettled{
		SubjectKey:     "user:" + uuid.NewString(),
		Tier:           "premium",
		GenerationID:   genID,
		Model:          "gpt-4o-mini",
		TokensConsumed: 842,
		Timestamp:      time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded GenerationSettled
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.SubjectKey, decoded.SubjectKey)
	assert.Equal(t, genID, decoded.GenerationID)
	assert.Equal(t, 842, decoded.TokensConsumed)
}

func TestSubjectKeyOf(t *testing.T) {
	settled, _ := json.Marshal(GenerationSettled{SubjectKey: "session:abc"})
	assert.Equal(t, "session:abc", subjectKeyOf(settled))

	userID := uuid.New()
	changed, _ := json.Marshal(PlanChanged{UserID: userID, NewTier: "premium"})
	assert.Equal(t, "user:"+userID.String(), subjectKeyOf(changed))

	assert.Empty(t, subjectKeyOf([]byte("not json")))
	assert.Empty(t, subjectKeyOf([]byte(`{}`)))
}

func TestNilPublisherDropsEvents(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.PublishQuotaRejected(context.Background(), QuotaRejected{Reason: "daily_token_limit_reached"}))
}
