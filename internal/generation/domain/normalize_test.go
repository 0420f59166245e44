package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

const assetURL = "http://cdn/x.wav"

func TestNormalizeEquivalentShapes(t *testing.T) {
	shapes := map[string]Output{
		"bare string":      Text(assetURL),
		"list of one":      List(Text(assetURL)),
		"object literal":   ObjectOutput(Object{URL: Literal(assetURL)}),
		"object deferred":  ObjectOutput(Object{URL: Deferred(func() (string, error) { return assetURL, nil })}),
		"list of deferred": List(ObjectOutput(Object{URL: Deferred(func() (string, error) { return assetURL, nil })})),
	}

	for name, out := range shapes {
		for _, kind := range []MediaKind{MediaKindAudio, MediaKindVideo} {
			t.Run(name+"/"+string(kind), func(t *testing.T) {
				got, err := Normalize(out, kind)
				assert.NoError(t, err)
				assert.Equal(t, assetURL, got)
			})
		}
	}
}

func TestNormalizeAudioField(t *testing.T) {
	out := ObjectOutput(Object{Audio: &Output{Kind: OutputText, Text: "https://cdn/legacy.wav"}})

	got, err := Normalize(out, MediaKindAudio)
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn/legacy.wav", got)

	_, err = Normalize(out, MediaKindVideo)
	assert.ErrorIs(t, err, ErrEmptyProviderResponse)
}

func TestNormalizeRuleOrder(t *testing.T) {
	// url wins over audio when both are present
	out := ObjectOutput(Object{
		URL:   Literal("https://cdn/url.wav"),
		Audio: &Output{Kind: OutputText, Text: "https://cdn/audio.wav"},
	})
	got, err := Normalize(out, MediaKindAudio)
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn/url.wav", got)

	// a matched rule with an unusable value does not fall through
	out = ObjectOutput(Object{
		URL:   Literal(""),
		Audio: &Output{Kind: OutputText, Text: "https://cdn/audio.wav"},
	})
	_, err = Normalize(out, MediaKindAudio)
	assert.ErrorIs(t, err, ErrEmptyProviderResponse)
}

func TestNormalizeMalformed(t *testing.T) {
	cases := map[string]Output{
		"list item":       List(Text("s3://bucket/x.wav")),
		"object literal":  ObjectOutput(Object{URL: Literal("ftp://x")}),
		"deferred":        ObjectOutput(Object{URL: Deferred(func() (string, error) { return "/relative.mp4", nil })}),
		"audio field":     ObjectOutput(Object{Audio: &Output{Kind: OutputText, Text: "data:audio/wav;base64,AAA"}}),
	}
	for name, out := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Normalize(out, MediaKindAudio)
			assert.ErrorIs(t, err, ErrMalformedAssetURL)
			assert.Empty(t, got)
		})
	}
}

func TestNormalizeEmpty(t *testing.T) {
	cases := map[string]Output{
		"null":              Null(),
		"empty list":        List(),
		"empty string":      Text(""),
		"non-http string":   Text("not a url"),
		"object no fields":  ObjectOutput(Object{}),
		"list of null":      List(Null()),
		"list of bare obj":  List(ObjectOutput(Object{})),
		"audio not text":    ObjectOutput(Object{Audio: &Output{Kind: OutputList}}),
		"whitespace url":    ObjectOutput(Object{URL: Literal("   ")}),
	}
	for name, out := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(out, MediaKindAudio)
			assert.ErrorIs(t, err, ErrEmptyProviderResponse)
		})
	}
}

func TestNormalizeDeferredFailure(t *testing.T) {
	out := ObjectOutput(Object{URL: Deferred(func() (string, error) { return "", errors.New("expired") })})

	_, err := Normalize(out, MediaKindVideo)
	assert.ErrorIs(t, err, ErrEmptyProviderResponse)
	assert.Contains(t, err.Error(), "expired")
}

func TestNormalizeList(t *testing.T) {
	got, err := NormalizeList(List(Text("https://cdn/v.mp4")), MediaKindVideo)
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn/v.mp4", got)

	_, err = NormalizeList(Text("https://cdn/v.mp4"), MediaKindVideo)
	assert.ErrorIs(t, err, ErrEmptyProviderResponse)

	_, err = NormalizeList(ObjectOutput(Object{URL: Literal("https://cdn/v.mp4")}), MediaKindVideo)
	assert.ErrorIs(t, err, ErrEmptyProviderResponse)
}

func TestGenerationErrorMatching(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := error(&GenerationError{Kind: ErrProviderUnavailable, Model: "acme/m", Err: cause})

	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrProviderUnavailable, KindOf(err))
	assert.False(t, IsNormalizationFailure(err))

	norm := &GenerationError{Kind: ErrMalformedAssetURL, Model: "acme/m"}
	assert.True(t, IsNormalizationFailure(norm))
	assert.Nil(t, KindOf(errors.New("other")))
}

func TestOutputRaw(t *testing.T) {
	out := List(
		Text("a"),
		ObjectOutput(Object{URL: Deferred(func() (string, error) { panic("must not be called") })}),
		Null(),
	)
	assert.Equal(t, []any{"a", map[string]any{"url": "<deferred>"}, nil}, out.Raw())
}

func TestParseMediaKind(t *testing.T) {
	kind, err := ParseMediaKind(" Audio ")
	assert.NoError(t, err)
	assert.Equal(t, MediaKindAudio, kind)

	_, err = ParseMediaKind("image")
	assert.ErrorIs(t, err, ErrUnsupportedMediaKind)
}
