package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Wrap these with NewDomainError or WrapOp so the
// gateway can map errors to response codes.
var (
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrNotFound         = fmt.Errorf("not found")
	ErrTimeout          = fmt.Errorf("operation timed out")
	ErrRateLimit        = fmt.Errorf("rate limit exceeded")
	ErrProviderError    = fmt.Errorf("provider error")
	ErrAuthInvalid      = fmt.Errorf("authentication failed")
	ErrConfigLoad       = fmt.Errorf("failed to load configuration")
	ErrRetrievalFailed  = fmt.Errorf("retrieval failed")
	ErrRetrieverUnknown = fmt.Errorf("retriever not found")
	ErrEmbeddingFailed  = fmt.Errorf("embedding generation failed")
	ErrIndexUnavailable = fmt.Errorf("semantic index unavailable")
	ErrIndexQuery       = fmt.Errorf("semantic index query failed")
	ErrIndexUpsert      = fmt.Errorf("semantic index upsert failed")
	ErrPipelineStage    = fmt.Errorf("pipeline stage failed")
	ErrBrowserSession   = fmt.Errorf("browser session failed")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Router.Run")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for API responses and monitoring.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeProviderError    ErrorCode = "PROVIDER_ERROR"
	CodeAuthInvalid      ErrorCode = "AUTH_INVALID"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeRetrievalFailed  ErrorCode = "RETRIEVAL_FAILED"
	CodeRetrieverUnknown ErrorCode = "RETRIEVER_UNKNOWN"
	CodeEmbeddingFailed  ErrorCode = "EMBEDDING_FAILED"
	CodeIndexUnavailable ErrorCode = "INDEX_UNAVAILABLE"
	CodeIndexQuery       ErrorCode = "INDEX_QUERY"
	CodeIndexUpsert      ErrorCode = "INDEX_UPSERT"
	CodePipelineStage    ErrorCode = "PIPELINE_STAGE"
	CodeBrowserSession   ErrorCode = "BROWSER_SESSION"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrInvalidInput:     CodeInvalidInput,
	ErrNotFound:         CodeNotFound,
	ErrTimeout:          CodeTimeout,
	ErrRateLimit:        CodeRateLimit,
	ErrProviderError:    CodeProviderError,
	ErrAuthInvalid:      CodeAuthInvalid,
	ErrConfigLoad:       CodeConfigLoad,
	ErrRetrievalFailed:  CodeRetrievalFailed,
	ErrRetrieverUnknown: CodeRetrieverUnknown,
	ErrEmbeddingFailed:  CodeEmbeddingFailed,
	ErrIndexUnavailable: CodeIndexUnavailable,
	ErrIndexQuery:       CodeIndexQuery,
	ErrIndexUpsert:      CodeIndexUpsert,
	ErrPipelineStage:    CodePipelineStage,
	ErrBrowserSession:   CodeBrowserSession,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and walks the error chain with errors.Is.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
