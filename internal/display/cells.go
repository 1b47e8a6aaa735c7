package display

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/mlorenz/socialflow/internal/core"
)

// emptyPlaceholder stands in for null/missing cell values regardless of the
// column's declared type.
const emptyPlaceholder = "—"

// glyphs for boolean cells.
const (
	trueGlyph  = "✓"
	falseGlyph = "✗"
)

// textTruncateLimit bounds serialized/long values in default cells.
const textTruncateLimit = 100

// FormatCell renders a single cell value according to its column type.
// Nil values render as the empty placeholder for every type.
func FormatCell(value interface{}, typ core.CellType) string {
	if value == nil {
		return emptyPlaceholder
	}

	switch typ {
	case core.CellLink:
		return stringify(value)

	case core.CellDate:
		s := stringify(value)
		if t, ok := parseDate(s); ok {
			return t.Format("1/2/2006")
		}
		return s

	case core.CellNumber:
		if f, ok := asFloat(value); ok {
			return humanize.Commaf(f)
		}
		return stringify(value)

	case core.CellBoolean:
		if b, ok := value.(bool); ok && !b {
			return falseGlyph
		}
		if truthy(value) {
			return trueGlyph
		}
		return falseGlyph

	default:
		switch value.(type) {
		case map[string]interface{}, []interface{}:
			compact, err := json.Marshal(value)
			if err != nil {
				return emptyPlaceholder
			}
			return truncate(string(compact), textTruncateLimit)
		}
		return truncate(stringify(value), textTruncateLimit)
	}
}

// KeyValueRow is one row of a two-column key/value table built from a plain
// object output.
type KeyValueRow struct {
	Label string        `json:"label"`
	Value string        `json:"value"`
	Type  core.CellType `json:"type"`
}

// KeyValueRows renders a plain object as label/value pairs in source key
// order. Returns nil when raw is not an object.
func KeyValueRows(raw json.RawMessage) []KeyValueRow {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}

	keys := topLevelKeys(raw)
	rows := make([]KeyValueRow, 0, len(keys))
	for _, key := range keys {
		value := obj[key]
		typ := InferCellType(value)
		rows = append(rows, KeyValueRow{
			Label: HumanizeLabel(key),
			Value: FormatCell(value, typ),
			Type:  typ,
		})
	}
	return rows
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != "" && v != "false" && v != "0"
	}
	return true
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
