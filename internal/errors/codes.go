// Package errors provides structured error handling for Criterion.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage and file errors
//   - 3XX: Provider and network errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates corpus store, index and file errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates embedding provider and remote store errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeMissingAPIKey  = "ERR_103_MISSING_API_KEY"

	// Storage errors (200-299)
	ErrCodeStoreUnavailable = "ERR_201_STORE_UNAVAILABLE"
	ErrCodeFileNotFound     = "ERR_202_FILE_NOT_FOUND"
	ErrCodeCorruptIndex     = "ERR_203_CORRUPT_INDEX"
	ErrCodeCorpusLocked     = "ERR_204_CORPUS_LOCKED"
	ErrCodeMalformedData    = "ERR_205_MALFORMED_DATA"

	// Provider errors (300-399)
	ErrCodeEmbeddingFailed  = "ERR_301_EMBEDDING_FAILED"
	ErrCodeProviderTimeout  = "ERR_302_PROVIDER_TIMEOUT"
	ErrCodeRemoteIndexError = "ERR_303_REMOTE_INDEX_ERROR"

	// Validation errors (400-499)
	ErrCodeEmptyQuery        = "ERR_401_EMPTY_QUERY"
	ErrCodeInvalidReference  = "ERR_402_INVALID_REFERENCE"
	ErrCodeChapterOutOfRange = "ERR_403_CHAPTER_OUT_OF_RANGE"
	ErrCodeVerseOutOfRange   = "ERR_404_VERSE_OUT_OF_RANGE"
	ErrCodeInvalidRange      = "ERR_405_INVALID_RANGE"
	ErrCodeUnknownTopic      = "ERR_406_UNKNOWN_TOPIC"
	ErrCodeUnknownCollection = "ERR_407_UNKNOWN_COLLECTION"
	ErrCodeInvalidGrade      = "ERR_408_INVALID_GRADE"
	ErrCodeDimensionMismatch = "ERR_409_DIMENSION_MISMATCH"
	ErrCodeInvalidInput      = "ERR_410_INVALID_INPUT"
	ErrCodeNoReferences      = "ERR_411_NO_REFERENCES"
	ErrCodeVerseNotFound     = "ERR_412_VERSE_NOT_FOUND"
	ErrCodeModelMismatch     = "ERR_413_MODEL_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeIngestFailed = "ERR_503_INGEST_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeDimensionMismatch, ErrCodeModelMismatch:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode reports whether a caller may reasonably retry.
// Nothing in this module retries on its own.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeProviderTimeout, ErrCodeStoreUnavailable, ErrCodeRemoteIndexError:
		return true
	default:
		return false
	}
}
