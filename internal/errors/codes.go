// Package errors provides structured error handling for ancestry.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration and schema errors
//   - 2XX: Store errors (entity repository, index sink)
//   - 3XX: Traversal errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration or schema errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates entity store and index sink errors.
	CategoryStore Category = "STORE"
	// CategoryTraversal indicates ancestor walk errors.
	CategoryTraversal Category = "TRAVERSAL"
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeSchemaInvalid  = "ERR_103_SCHEMA_INVALID"

	// Store errors (200-299)
	ErrCodeEntityNotFound       = "ERR_201_ENTITY_NOT_FOUND"
	ErrCodeStoreBusy            = "ERR_202_STORE_BUSY"
	ErrCodeStoreFailed          = "ERR_203_STORE_FAILED"
	ErrCodeCorruptIndex         = "ERR_204_CORRUPT_INDEX"
	ErrCodeDefinitionUnresolved = "ERR_205_DEFINITION_UNRESOLVED"

	// Traversal errors (300-399)
	ErrCodeTraversalLimit = "ERR_301_TRAVERSAL_LIMIT"

	// Validation errors (400-499)
	ErrCodeInvalidInput       = "ERR_401_INVALID_INPUT"
	ErrCodeFieldNoRelations   = "ERR_402_FIELD_NO_RELATIONS"
	ErrCodeNoFieldsEnabled    = "ERR_403_NO_FIELDS_ENABLED"
	ErrCodeFieldNotCandidate  = "ERR_404_FIELD_NOT_CANDIDATE"
	ErrCodeIllegalChoice      = "ERR_405_ILLEGAL_CHOICE"
	ErrCodeInvalidRelationKey = "ERR_406_INVALID_RELATION_KEY"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeIndexFailed  = "ERR_502_INDEX_FAILED"
	ErrCodeSearchFailed = "ERR_503_SEARCH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	numStr := code[4:7]

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryTraversal
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex:
		return SeverityFatal
	case ErrCodeTraversalLimit, ErrCodeDefinitionUnresolved:
		// The walk or discovery pass continues with partial data.
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeStoreBusy:
		return true
	default:
		return false
	}
}
