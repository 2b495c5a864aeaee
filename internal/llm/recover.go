package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoObject = errors.New("no JSON object found")

// RecoverJSON extracts the one JSON object a completion is supposed to carry.
// It accepts the full text when it parses as an object, otherwise the span
// between the first '{' and the last '}'. Nothing else is repaired.
func RecoverJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if isObject(trimmed) {
		return json.RawMessage(trimmed), nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < 0 || start >= end {
		return nil, &MalformedOutputError{Raw: text, Err: errNoObject}
	}
	candidate := trimmed[start : end+1]
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil, &MalformedOutputError{Raw: text, Err: err}
	}
	return json.RawMessage(candidate), nil
}

// DecodeJSON recovers the object in text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	raw, err := RecoverJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &MalformedOutputError{Raw: text, Err: err}
	}
	return nil
}

func isObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	return json.Valid([]byte(s))
}
