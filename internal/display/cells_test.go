package display

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mlorenz/socialflow/internal/core"
)

func TestFormatCell_NilPlaceholder(t *testing.T) {
	for _, typ := range []core.CellType{core.CellText, core.CellLink, core.CellDate, core.CellNumber, core.CellBoolean} {
		if got := FormatCell(nil, typ); got != "—" {
			t.Fatalf("type %s: expected placeholder for nil, got %q", typ, got)
		}
	}
}

func TestFormatCell_Number(t *testing.T) {
	if got := FormatCell(float64(1234567), core.CellNumber); got != "1,234,567" {
		t.Fatalf("expected grouped number, got %q", got)
	}
	if got := FormatCell("8900", core.CellNumber); got != "8,900" {
		t.Fatalf("expected numeric string grouped, got %q", got)
	}
	if got := FormatCell("not-a-number", core.CellNumber); got != "not-a-number" {
		t.Fatalf("expected passthrough for unparseable number, got %q", got)
	}
}

func TestFormatCell_Boolean(t *testing.T) {
	if got := FormatCell(true, core.CellBoolean); got != "✓" {
		t.Fatalf("expected check glyph, got %q", got)
	}
	if got := FormatCell(false, core.CellBoolean); got != "✗" {
		t.Fatalf("expected cross glyph, got %q", got)
	}
}

func TestFormatCell_Date(t *testing.T) {
	if got := FormatCell("2024-01-15T00:00:00Z", core.CellDate); got != "1/15/2024" {
		t.Fatalf("expected short date, got %q", got)
	}
	// Unparseable dates fall back to the raw string.
	if got := FormatCell("yesterday-ish", core.CellDate); got != "yesterday-ish" {
		t.Fatalf("expected raw passthrough, got %q", got)
	}
}

func TestFormatCell_Link(t *testing.T) {
	url := "https://example.com/some/long/path"
	if got := FormatCell(url, core.CellLink); got != url {
		t.Fatalf("expected link passthrough, got %q", got)
	}
}

func TestFormatCell_ObjectSerializedAndTruncated(t *testing.T) {
	obj := map[string]interface{}{"a": strings.Repeat("x", 200)}
	got := FormatCell(obj, core.CellText)
	if !strings.HasPrefix(got, `{"a":"xxx`) {
		t.Fatalf("expected compact JSON, got %q", got)
	}
	if len([]rune(got)) != textTruncateLimit+1 {
		t.Fatalf("expected truncation to %d runes plus ellipsis, got %d", textTruncateLimit, len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}

func TestFormatCell_LongText(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := FormatCell(long, core.CellText)
	if len([]rune(got)) != textTruncateLimit+1 || !strings.HasSuffix(got, "…") {
		t.Fatalf("expected truncated text, got %d runes", len([]rune(got)))
	}

	short := "hello"
	if got := FormatCell(short, core.CellText); got != "hello" {
		t.Fatalf("expected short text untouched, got %q", got)
	}
}

func TestKeyValueRows(t *testing.T) {
	raw := json.RawMessage(`{"followerCount": 1234, "profile_url": "https://x.example/u", "verified": true}`)

	rows := KeyValueRows(raw)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Label != "Follower Count" || rows[0].Value != "1,234" || rows[0].Type != core.CellNumber {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Type != core.CellLink {
		t.Fatalf("expected link row, got %+v", rows[1])
	}
	if rows[2].Value != "✓" {
		t.Fatalf("expected boolean glyph, got %+v", rows[2])
	}

	if rows := KeyValueRows(json.RawMessage(`[1,2]`)); rows != nil {
		t.Fatalf("expected nil for non-object input, got %+v", rows)
	}
}
