package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProviderUnavailable   = errors.New("provider_unavailable")
	ErrEmptyProviderResponse = errors.New("empty_provider_response")
	ErrMalformedAssetURL     = errors.New("malformed_asset_url")

	ErrInvalidPrompt        = errors.New("invalid_prompt")
	ErrUnsupportedMediaKind = errors.New("unsupported_media_kind")
	ErrUnknownProvider      = errors.New("unknown_provider")
)

// GenerationError classifies a failed generation. errors.Is matches both the
// kind sentinel and the underlying cause.
type GenerationError struct {
	Kind  error
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (model %s)", e.Kind, e.Model)
	}
	return fmt.Sprintf("%s (model %s): %v", e.Kind, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the classification sentinel for err, or nil when err is not
// a generation failure.
func KindOf(err error) error {
	for _, kind := range []error{ErrProviderUnavailable, ErrEmptyProviderResponse, ErrMalformedAssetURL} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsNormalizationFailure reports whether the provider answered but the
// answer held no usable asset URL.
func IsNormalizationFailure(err error) bool {
	return errors.Is(err, ErrEmptyProviderResponse) || errors.Is(err, ErrMalformedAssetURL)
}
