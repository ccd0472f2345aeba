package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocuments signals scoring was requested without a corpus.
	ErrNoDocuments = errors.New("no documents")
	// ErrNoWords signals scoring was requested without a word list.
	ErrNoWords = errors.New("no words")
	// ErrEmptyWordList signals the word list vanished during normalization.
	ErrEmptyWordList = errors.New("empty word list after preprocessing")
	// ErrEmbeddingIncomplete signals the embedding backend returned missing vectors.
	ErrEmbeddingIncomplete = errors.New("embedding incomplete")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrTaggerNotFound signals a request for an unregistered tagger.
	ErrTaggerNotFound = errors.New("tagger not found")
)

// IncompleteSide names which input side the embedding backend failed to cover.
type IncompleteSide string

// Sides of an incomplete embedding run.
const (
	SideWords     IncompleteSide = "words"
	SideDocuments IncompleteSide = "documents"
)

// IncompleteEmbeddingError wraps ErrEmbeddingIncomplete with the failing side.
type IncompleteEmbeddingError struct {
	Side IncompleteSide
}

func (e *IncompleteEmbeddingError) Error() string {
	return fmt.Sprintf("%s: some %s not embedded", ErrEmbeddingIncomplete.Error(), e.Side)
}

func (e *IncompleteEmbeddingError) Unwrap() error { return ErrEmbeddingIncomplete }

// NewIncompleteEmbedding creates an incomplete embedding error for the given side.
func NewIncompleteEmbedding(side IncompleteSide) error {
	return &IncompleteEmbeddingError{Side: side}
}
