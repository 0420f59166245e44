package replicate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallbiznis/genstudio/internal/generation/domain"
)

// DecodeOutput maps a prediction's JSON output onto the output union. In
// file-output mode every URL string becomes an object whose url is read
// through an accessor, the way hosted file handles are exposed.
func DecodeOutput(raw json.RawMessage, fileOutput bool) (domain.Output, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return domain.Null(), nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return domain.Null(), fmt.Errorf("replicate: decode output: %w", err)
	}
	return toOutput(value, fileOutput), nil
}

func toOutput(value any, fileOutput bool) domain.Output {
	switch v := value.(type) {
	case nil:
		return domain.Null()
	case string:
		if fileOutput && isRemoteURL(v) {
			url := v
			return domain.ObjectOutput(domain.Object{
				URL: domain.Deferred(func() (string, error) { return url, nil }),
			})
		}
		return domain.Text(v)
	case []any:
		items := make([]domain.Output, 0, len(v))
		for _, item := range v {
			items = append(items, toOutput(item, fileOutput))
		}
		return domain.List(items...)
	case map[string]any:
		obj := domain.Object{}
		if url, ok := v["url"]; ok {
			if s, isString := url.(string); isString {
				obj.URL = domain.Literal(s)
			} else {
				obj.URL = domain.Literal("")
			}
		}
		if audio, ok := v["audio"]; ok {
			// audio keeps its raw string form even in file-output mode
			decoded := toOutput(audio, false)
			obj.Audio = &decoded
		}
		return domain.ObjectOutput(obj)
	default:
		return domain.Text(fmt.Sprint(v))
	}
}

func isRemoteURL(value string) bool {
	return strings.HasPrefix(value, "https://") || strings.HasPrefix(value, "http://")
}
