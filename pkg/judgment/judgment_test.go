package judgment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	resp, err := ParseResponse(`{"category": "engine", "covered": true, "confidence": 0.85, "rationale": "turbocharger is an engine component"}`)
	require.NoError(t, err)
	assert.Equal(t, "engine", resp.Category)
	assert.True(t, resp.Covered)
	assert.InDelta(t, 0.85, resp.Confidence, 1e-9)
}

func TestParseResponseWithProse(t *testing.T) {
	text := "Here is my assessment:\n```json\n" +
		`{"category": "transmission", "covered": true, "confidence": 0.7, "rationale": "clutch work"}` +
		"\n```\nLet me know if you need more."
	resp, err := ParseResponse(text)
	require.NoError(t, err)
	assert.Equal(t, "transmission", resp.Category)
}

func TestParseResponseNullCategory(t *testing.T) {
	resp, err := ParseResponse(`{"category": null, "covered": true, "confidence": 0.9, "rationale": "not a covered system"}`)
	require.NoError(t, err)
	assert.Empty(t, resp.Category)
	// No category means the item cannot be covered, whatever the flag said.
	assert.False(t, resp.Covered)
}

func TestParseResponseNoneCategory(t *testing.T) {
	resp, err := ParseResponse(`{"category": "None", "covered": false, "confidence": 0.8, "rationale": "consumable"}`)
	require.NoError(t, err)
	assert.Empty(t, resp.Category)
	assert.False(t, resp.Covered)
}

func TestParseResponseClampsConfidence(t *testing.T) {
	resp, err := ParseResponse(`{"category": "engine", "covered": true, "confidence": 1.7, "rationale": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.Confidence)

	resp, err = ParseResponse(`{"category": "engine", "covered": true, "confidence": -0.2, "rationale": "x"}`)
	require.NoError(t, err)
	assert.Zero(t, resp.Confidence)
}

func TestParseResponseNoJSON(t *testing.T) {
	_, err := ParseResponse("I cannot classify this item.")
	assert.Error(t, err)
}

func TestParseResponseMalformedJSON(t *testing.T) {
	_, err := ParseResponse(`{"category": "engine", "covered":`)
	assert.Error(t, err)
}

func TestNewClientOptions(t *testing.T) {
	c := NewClient("test-key",
		WithModel("claude-sonnet-4-5"),
		WithMaxTokens(512),
		WithRequestsPerSec(5),
	)
	assert.Equal(t, "claude-sonnet-4-5", c.model)
	assert.Equal(t, int64(512), c.maxTokens)
	require.NotNil(t, c.limiter)
	assert.InDelta(t, 5.0, float64(c.limiter.Limit()), 1e-9)
}
