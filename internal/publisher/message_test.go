package publisher

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aha_collector/internal/domain"
)

func TestNewMomentMessage(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	moment := &domain.PublishedMoment{
		ClassifiedMoment: domain.ClassifiedMoment{
			ID:          "c1",
			SourceID:    "hn:101",
			Layer:       domain.LayerHow,
			GrowthLever: domain.LeverB2B,
			Realization: "It wrote the migration plan for the whole team",
			Provocation: "What if team onboarding shipped with shared prompts?",
			Accepted:    true,
		},
		Platform: domain.PlatformHackerNews,
		Title:    "Ask HN: Claude finally clicked for me",
		AITool:   "Claude",
	}

	msg := NewMomentMessage(moment, at)
	assert.Equal(t, ActionPublished, msg.Action)
	assert.Equal(t, "post:hn:101", msg.Key)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "published", decoded["action"])

	inner, ok := decoded["moment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "How", inner["layer"])
	assert.Equal(t, "B2B", inner["growth_lever"])
	assert.Equal(t, "hn", inner["platform"])
	assert.Equal(t, "Claude", inner["ai_tool"])
}
