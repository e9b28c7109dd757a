package video

import (
	"errors"
	"fmt"
	"strings"
)

// URLer is implemented by output objects that expose a download URL.
type URLer interface {
	URL() string
}

// ExtractURL normalizes a synchronous backend's output to a single URL.
//
// Precedence: a string is the URL; an object exposing a URL (URLer, or a
// decoded JSON object with a string "url" field) yields that URL; a non-empty
// list recurses into its first element. nil, empty strings, empty lists and
// any other shape are errors.
func ExtractURL(output any) (string, error) {
	switch v := output.(type) {
	case nil:
		return "", errors.New("output is nil")
	case string:
		return nonEmptyURL(v, "output string is empty")
	case URLer:
		return nonEmptyURL(v.URL(), "output object has an empty url")
	case map[string]any:
		raw, ok := v["url"]
		if !ok {
			return "", errors.New("output object has no url field")
		}
		s, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("output object url is %T, not a string", raw)
		}
		return nonEmptyURL(s, "output object has an empty url")
	case []any:
		if len(v) == 0 {
			return "", errors.New("output list is empty")
		}
		return ExtractURL(v[0])
	case []string:
		if len(v) == 0 {
			return "", errors.New("output list is empty")
		}
		return ExtractURL(v[0])
	default:
		return "", fmt.Errorf("unsupported output shape %T", output)
	}
}

func nonEmptyURL(s, msg string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New(msg)
	}
	return s, nil
}
