package display

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/mlorenz/socialflow/internal/core"
)

// maxInferredColumns caps how many columns are derived from a row object.
const maxInferredColumns = 8

// InferColumns derives table columns from the first row of a table. keys
// supplies the row's key order as written in the source JSON; keys absent
// from the row are skipped. Each column's cell type is inferred from the
// first row's value only, not scanned across all rows.
func InferColumns(first map[string]interface{}, keys []string) []core.Column {
	cols := make([]core.Column, 0, maxInferredColumns)
	for _, key := range keys {
		if len(cols) == maxInferredColumns {
			break
		}
		value, ok := first[key]
		if !ok {
			continue
		}
		cols = append(cols, core.Column{
			Key:   key,
			Label: HumanizeLabel(key),
			Type:  InferCellType(value),
		})
	}
	return cols
}

// HumanizeLabel turns an identifier-style key into a display label: camel
// case boundaries become spaces, underscores become spaces, and the first
// letter is capitalized.
func HumanizeLabel(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for _, r := range key {
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		if r == '_' {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	label := strings.TrimSpace(b.String())
	for strings.Contains(label, "  ") {
		label = strings.ReplaceAll(label, "  ", " ")
	}
	if label == "" {
		return label
	}
	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// InferCellType decides how a single untyped value is rendered.
func InferCellType(value interface{}) core.CellType {
	switch v := value.(type) {
	case float64, int, int64:
		return core.CellNumber
	case bool:
		return core.CellBoolean
	case string:
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return core.CellLink
		}
		// The length guard keeps short numeric-looking strings ("20240115",
		// "12:30:45") from being misread as dates.
		if len(v) > 8 {
			if _, ok := parseDate(v); ok {
				return core.CellDate
			}
		}
	}
	return core.CellText
}

// dateLayouts are tried in order when deciding whether a string is a date.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822,
	"Jan 2, 2006",
	"January 2, 2006",
	"01/02/2006",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PathValue traverses a dot-separated path into nested objects. A missing
// intermediate key yields nil, never an error.
func PathValue(row interface{}, path string) interface{} {
	current := row
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = obj[key]
		if !ok {
			return nil
		}
	}
	return current
}

// topLevelKeys returns an object's keys in source order via a token scan.
// Returns nil when raw is not an object.
func topLevelKeys(raw json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := keyTok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}

// firstElementKeys returns the key order of the first object in a serialized
// array. Returns nil when raw is not an array of objects.
func firstElementKeys(raw json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil
	}
	if !dec.More() {
		return nil
	}
	var first json.RawMessage
	if err := dec.Decode(&first); err != nil {
		return nil
	}
	return topLevelKeys(first)
}

// rawField extracts the serialized value of one top-level key from an
// object, preserving nested key order for later scans.
func rawField(raw json.RawMessage, field string) json.RawMessage {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil
		}
		if key == field {
			return value
		}
	}
	return nil
}
