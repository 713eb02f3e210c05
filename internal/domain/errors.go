package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a request that failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAssistantUnavailable signals an unknown or inactive tenant token.
	ErrAssistantUnavailable = errors.New("assistant unavailable or inactive")
	// ErrDirectoryUnavailable signals that the assistant directory could not be reached.
	ErrDirectoryUnavailable = errors.New("assistant directory unavailable")

	// ErrCompletionProviderError signals a completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
	// ErrCompletionQuotaExceeded signals an exhausted completion token budget.
	ErrCompletionQuotaExceeded = errors.New("completion quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
