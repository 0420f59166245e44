package domain

import (
	"fmt"
	"strings"
)

// rule inspects one output shape. matched reports whether the shape applied;
// once a rule matches no later rule runs, even if the value is unusable.
type rule func(out Output, kind MediaKind) (value string, matched bool, err error)

var normalizationRules = []rule{
	fromFirstListItem,
	fromURLField,
	fromAudioField,
	fromHTTPText,
}

// Normalize reduces a provider output to an asset URL, first matching rule wins:
// the first element of a non-empty list, an object's url field (invoking a
// deferred accessor), an object's audio field for audio only, then a bare
// string beginning with http.
func Normalize(out Output, kind MediaKind) (string, error) {
	return normalizeWith(out, kind, normalizationRules)
}

// NormalizeList applies only the first-list-item rule.
func NormalizeList(out Output, kind MediaKind) (string, error) {
	return normalizeWith(out, kind, []rule{fromFirstListItem})
}

func normalizeWith(out Output, kind MediaKind, rules []rule) (string, error) {
	for _, r := range rules {
		value, matched, err := r(out, kind)
		if !matched {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrEmptyProviderResponse, err)
		}
		return validateAssetURL(value)
	}
	return "", ErrEmptyProviderResponse
}

func validateAssetURL(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrEmptyProviderResponse
	}
	if !strings.HasPrefix(value, "http") {
		return "", ErrMalformedAssetURL
	}
	return value, nil
}

func fromFirstListItem(out Output, _ MediaKind) (string, bool, error) {
	if out.Kind != OutputList || len(out.Items) == 0 {
		return "", false, nil
	}
	first := out.Items[0]
	switch first.Kind {
	case OutputText:
		return first.Text, true, nil
	case OutputObject:
		if first.Object != nil && first.Object.URL != nil {
			value, err := first.Object.URL.Resolve()
			return value, true, err
		}
	}
	return "", true, nil
}

func fromURLField(out Output, _ MediaKind) (string, bool, error) {
	if out.Kind != OutputObject || out.Object == nil || out.Object.URL == nil {
		return "", false, nil
	}
	value, err := out.Object.URL.Resolve()
	return value, true, err
}

func fromAudioField(out Output, kind MediaKind) (string, bool, error) {
	if kind != MediaKindAudio || out.Kind != OutputObject || out.Object == nil || out.Object.Audio == nil {
		return "", false, nil
	}
	if out.Object.Audio.Kind != OutputText {
		return "", true, nil
	}
	return out.Object.Audio.Text, true, nil
}

func fromHTTPText(out Output, _ MediaKind) (string, bool, error) {
	if out.Kind != OutputText || !strings.HasPrefix(out.Text, "http") {
		return "", false, nil
	}
	return out.Text, true, nil
}
