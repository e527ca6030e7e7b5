package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicName(t *testing.T) {
	assert.Equal(t, "global_rule_contexts", RuleContextsChanged.Name(Exchange))
}

func TestDecodeBatch(t *testing.T) {
	body, err := Encode([]map[string]any{{"session_id": "s1", "current": []string{"ais-brand-LG"}}})
	require.NoError(t, err)

	batch, err := Decode[[]struct {
		SessionId string   `json:"session_id"`
		Current   []string `json:"current"`
	}](body)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "s1", batch[0].SessionId)
	assert.Equal(t, []string{"ais-brand-LG"}, batch[0].Current)

	_, err = Decode[[]string]([]byte("{"))
	assert.Error(t, err)
}
