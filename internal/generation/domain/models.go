// Package domain defines the generation gateway contract: requests, the
// provider output union, normalization and the error taxonomy.
package domain

import (
	"context"
	"strings"
)

type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

func ParseMediaKind(value string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(value))) {
	case MediaKindAudio:
		return MediaKindAudio, nil
	case MediaKindVideo:
		return MediaKindVideo, nil
	default:
		return "", ErrUnsupportedMediaKind
	}
}

// Request is built per call and never persisted. ID doubles as the usage
// idempotency key.
type Request struct {
	ID        string
	CallerID  string
	Prompt    string
	MediaKind MediaKind
}

// Result is the only output of a successful generation.
type Result struct {
	AssetURL  string    `json:"url"`
	MediaKind MediaKind `json:"media_kind"`
	Model     string    `json:"-"`
	Fallback  bool      `json:"-"`
}

// Invocation is one provider call: a model and its full input.
type Invocation struct {
	Model     string
	MediaKind MediaKind
	Input     map[string]any
}

// Provider runs one model to completion and returns its raw output.
type Provider interface {
	Name() string
	Run(ctx context.Context, inv Invocation) (Output, error)
}

// Service turns a prompt into a normalized asset URL.
type Service interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
