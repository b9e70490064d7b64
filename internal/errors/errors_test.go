package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriterionError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := stderrors.New("connection refused")

	// When: wrapping with CriterionError
	err := New(ErrCodeStoreUnavailable, "corpus store unavailable", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, err)
	assert.Equal(t, originalErr, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, originalErr))
}

func TestCriterionError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "reference error",
			code:     ErrCodeInvalidReference,
			message:  `invalid reference "abc"`,
			expected: `[ERR_402_INVALID_REFERENCE] invalid reference "abc"`,
		},
		{
			name:     "embedding error",
			code:     ErrCodeEmbeddingFailed,
			message:  "quota exceeded",
			expected: "[ERR_301_EMBEDDING_FAILED] quota exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestCriterionError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeVerseOutOfRange, "verse 300 out of range", nil)
	err2 := New(ErrCodeVerseOutOfRange, "verse 9999 out of range", nil)
	other := New(ErrCodeChapterOutOfRange, "chapter 200 out of range", nil)

	assert.True(t, stderrors.Is(err1, err2))
	assert.False(t, stderrors.Is(err1, other))
}

func TestCriterionError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		expected Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeStoreUnavailable, CategoryIO},
		{ErrCodeEmbeddingFailed, CategoryNetwork},
		{ErrCodeEmptyQuery, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{"bad", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, categoryFromCode(tt.code))
		})
	}
}

func TestCriterionError_WithDetailAndSuggestion(t *testing.T) {
	// Given: a base error
	err := New(ErrCodeMissingAPIKey, "no API key configured", nil)

	// When: adding details and a suggestion
	err.WithDetail("provider", "gemini").WithSuggestion("set GEMINI_API_KEY")

	// Then: both are recorded
	assert.Equal(t, "gemini", err.Details["provider"])
	assert.Equal(t, "set GEMINI_API_KEY", err.Suggestion)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestHelpers_FindErrorInChain(t *testing.T) {
	// Given: a CriterionError wrapped with fmt.Errorf
	base := New(ErrCodeProviderTimeout, "embedding timed out", nil)
	wrapped := fmt.Errorf("search verses: %w", base)

	// Then: helpers see through the wrapping
	assert.Equal(t, ErrCodeProviderTimeout, GetCode(wrapped))
	assert.Equal(t, CategoryNetwork, GetCategory(wrapped))
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsValidation(wrapped))

	// And: plain errors carry nothing
	plain := stderrors.New("boom")
	assert.Empty(t, GetCode(plain))
	assert.False(t, IsRetryable(plain))
}

func TestSeverityFromCode(t *testing.T) {
	assert.Equal(t, SeverityFatal, New(ErrCodeDimensionMismatch, "x", nil).Severity)
	assert.Equal(t, SeverityWarning, New(ErrCodeProviderTimeout, "x", nil).Severity)
	assert.Equal(t, SeverityError, New(ErrCodeEmptyQuery, "x", nil).Severity)
}
