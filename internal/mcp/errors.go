// Package mcp exposes hierarchy discovery, configuration, ancestor lookup
// and within-collection search as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aman-CERP/ancestry/internal/ancestry"
	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeSearchUnavailable indicates no search index is attached.
	ErrCodeSearchUnavailable = -32001

	// ErrCodeEntityNotFound indicates the requested entity does not exist.
	ErrCodeEntityNotFound = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrSearchUnavailable indicates the server was started without a search index.
	ErrSearchUnavailable = errors.New("search index not available")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	if errors.Is(err, ancestry.ErrNotFound) {
		return &MCPError{Code: ErrCodeEntityNotFound, Message: "Entity not found."}
	}
	if ae, ok := ancerrors.As(err); ok {
		return mapAncestryError(ae)
	}

	switch {
	case errors.Is(err, ErrSearchUnavailable):
		return &MCPError{
			Code:    ErrCodeSearchUnavailable,
			Message: "Search index not available. Run 'ancestry index' first.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapAncestryError(ae *ancerrors.AncestryError) *MCPError {
	message := ae.Message
	if ae.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ae.Message, ae.Suggestion)
	}

	switch ae.Category {
	case ancerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case ancerrors.CategoryStore:
		if ae.Code == ancerrors.ErrCodeEntityNotFound {
			return &MCPError{Code: ErrCodeEntityNotFound, Message: message}
		}
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
