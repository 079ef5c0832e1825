// Package ai provides thin HTTP clients for the external AI providers
// used by the content and image regeneration stages.
package ai

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when no provider is configured.
var ErrNoProvider = errors.New("no AI provider available")

// TextProvider generates rewritten copy from a prompt.
type TextProvider interface {
	// Name returns the provider name for logging.
	Name() string

	// Available reports whether the provider is configured and usable.
	Available() bool

	// Complete sends a prompt and returns the generated text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// ImageProvider generates a replacement image and returns its URL.
type ImageProvider interface {
	Name() string
	Available() bool

	// Generate produces an image for the prompt and returns a URL
	// suitable for use as an <img> src.
	Generate(ctx context.Context, prompt string) (string, error)
}
