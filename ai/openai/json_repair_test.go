package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON(t *testing.T) {
	t.Run("valid JSON passes through", func(t *testing.T) {
		in := `{"tags": [{"tag": "neural networks", "relevance": 9}]}`
		assert.Equal(t, in, repairJSON(in))
	})

	t.Run("quotes bare keys", func(t *testing.T) {
		in := `{"tags": [{tag": "budget", relevance": 7}]}`
		var result tagAnalysis
		require.NoError(t, json.Unmarshal([]byte(repairJSON(in)), &result))
		require.Len(t, result.Tags, 1)
		assert.Equal(t, "budget", result.Tags[0].Tag)
		assert.Equal(t, 7, result.Tags[0].Relevance)
	})

	t.Run("drops trailing commas", func(t *testing.T) {
		in := `{"tags": [{"tag": "budget", "relevance": 7},]}`
		var result tagAnalysis
		require.NoError(t, json.Unmarshal([]byte(repairJSON(in)), &result))
		assert.Len(t, result.Tags, 1)
	})

	t.Run("commas inside strings survive", func(t *testing.T) {
		in := `{"tags": [{"tag": "a, b", "relevance": 3}]}`
		var result tagAnalysis
		require.NoError(t, json.Unmarshal([]byte(repairJSON(in)), &result))
		require.Len(t, result.Tags, 1)
		assert.Equal(t, "a, b", result.Tags[0].Tag)
	})
}
