// Package mcp exposes the retrieval engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	cerrors "github.com/Aman-CERP/criterion/internal/errors"
)

// MCP error codes. The -3200x range is server defined.
const (
	ErrCodeStoreUnavailable = -32001
	ErrCodeEmbeddingFailed  = -32002
	ErrCodeTimeout          = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is an error reported to MCP clients.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors. Messages of structured
// errors are kept, with their suggestion appended; anything else is reported
// as a generic internal error.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	if ce, ok := cerrors.As(err); ok {
		return mapCriterionError(ce)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid tool arguments.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

func mapCriterionError(ce *cerrors.CriterionError) *MCPError {
	message := ce.Message
	if ce.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ce.Message, ce.Suggestion)
	}

	switch ce.Category {
	case cerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case cerrors.CategoryNetwork:
		if ce.Code == cerrors.ErrCodeEmbeddingFailed {
			return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
		}
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case cerrors.CategoryIO:
		return &MCPError{Code: ErrCodeStoreUnavailable, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
