package provider

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// Candidate is one search hit. ProviderTrackID is only meaningful to the
// provider that returned it.
type Candidate struct {
	ProviderTrackID string
	Title           string
	Artist          string
	Album           string
}

// Provider is a remote lyric source. Implementations return ErrNotFound
// (or an empty slice) when nothing matches and other errors for transport
// or decoding failures.
type Provider interface {
	Name() string
	Search(ctx context.Context, title, artist string) ([]Candidate, error)
	FetchLyricText(ctx context.Context, providerTrackID string) (string, error)
}

// Error records which provider failed and why.
type Error struct {
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(provider, message string, err error) *Error {
	return &Error{Provider: provider, Message: message, Err: err}
}
