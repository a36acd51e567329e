package postgres

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TextList is a JSONB list column. Intake tools write either plain strings
// or objects; objects are reduced to their first populated text key, or to
// their compact JSON when none is set. Every element is kept, blank ones
// included, since callers count list lengths.
type TextList []string

var textKeys = []string{"flag", "recommendation", "finding", "text", "description", "name"}

// Scan implements sql.Scanner.
func (l *TextList) Scan(value interface{}) error {
	*l = TextList{}
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported list column type %T", value)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decode list column: %w", err)
	}
	out := make(TextList, 0, len(items))
	for _, item := range items {
		out = append(out, decodeItem(item))
	}
	*l = out
	return nil
}

func decodeItem(item json.RawMessage) string {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(item, &obj); err == nil {
		for _, key := range textKeys {
			if v, ok := obj[key].(string); ok && v != "" {
				return v
			}
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, item); err != nil {
		return string(item)
	}
	return compact.String()
}

// jsonColumn marshals a write-back list, always producing a JSON array.
func jsonColumn(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}
