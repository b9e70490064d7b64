package errors

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	err := New(ErrCodeChapterOutOfRange, "Invalid Surah number: 200. Must be between 1 and 114.", nil)

	result := FormatForUser(err, false)

	assert.Contains(t, result, "Invalid Surah number: 200")
	assert.Contains(t, result, "[ERR_403_CHAPTER_OUT_OF_RANGE]")
}

func TestFormatForUser_WithSuggestion(t *testing.T) {
	err := New(ErrCodeMissingAPIKey, "Gemini API key is not set", nil).
		WithSuggestion("Export GEMINI_API_KEY or use --embedder static")

	result := FormatForUser(err, false)

	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "GEMINI_API_KEY")
}

func TestFormatForUser_DebugShowsCause(t *testing.T) {
	err := New(ErrCodeEmbeddingFailed, "embedding failed", stderrors.New("429 quota"))

	assert.NotContains(t, FormatForUser(err, false), "429 quota")
	assert.Contains(t, FormatForUser(err, true), "429 quota")
}

func TestFormatForUser_StandardError(t *testing.T) {
	result := FormatForUser(stderrors.New("something went wrong"), false)
	assert.Equal(t, "something went wrong", result)
}

func TestFormatForCLI_WrapsPlainErrors(t *testing.T) {
	result := FormatForCLI(stderrors.New("disk on fire"))

	assert.Contains(t, result, "Error: disk on fire")
	assert.Contains(t, result, "Code: ERR_501_INTERNAL")
}

func TestFormatJSON_IncludesFields(t *testing.T) {
	// Given: an error with cause and detail
	err := New(ErrCodeStoreUnavailable, "database locked", stderrors.New("SQLITE_BUSY")).
		WithDetail("path", "/tmp/corpus.db")

	// When: formatting as JSON
	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Then: all fields are present
	assert.Equal(t, ErrCodeStoreUnavailable, decoded["code"])
	assert.Equal(t, "IO", decoded["category"])
	assert.Equal(t, "SQLITE_BUSY", decoded["cause"])
	assert.Equal(t, true, decoded["retryable"])
	assert.Equal(t, "/tmp/corpus.db", decoded["details"].(map[string]any)["path"])
}

func TestFormatForLog(t *testing.T) {
	assert.Nil(t, FormatForLog(nil))
	assert.Equal(t, map[string]any{"error": "plain"}, FormatForLog(stderrors.New("plain")))

	fields := FormatForLog(New(ErrCodeInvalidRange, "bad range", nil).WithDetail("ref", "2:20-10"))
	assert.Equal(t, ErrCodeInvalidRange, fields["error_code"])
	assert.Equal(t, "2:20-10", fields["detail_ref"])
}
