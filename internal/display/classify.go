// Package display decides how an opaque JSON run output should be rendered.
// It is a pure, deterministic decision procedure: classification never fails,
// falling back to raw structured display when no better inference applies.
package display

import (
	"encoding/json"

	"github.com/mlorenz/socialflow/internal/core"
)

// conventional keys scanned, in order, when a single object wraps its payload
// in a nested array.
var nestedArrayKeys = []string{"items", "data", "results", "entries", "records", "rows"}

// Classify decides the display plan for an output. Precedence, strictly:
// an explicit hint from the workflow configuration wins outright; otherwise a
// hint registered for the producing module applies; otherwise structural
// inference runs. Anything ambiguous or undecodable yields the json plan.
func Classify(output json.RawMessage, hint *core.DisplayHint, module string) core.DisplayPlan {
	if hint != nil && hint.Type.Valid() {
		return planFromHint(*hint)
	}

	if module != "" {
		if h, ok := ModuleHint(module); ok {
			return planFromHint(h)
		}
	}

	return inferStructure(output)
}

func planFromHint(h core.DisplayHint) core.DisplayPlan {
	plan := core.DisplayPlan{Type: h.Type}
	if len(h.Columns) > 0 {
		plan.Config = &core.DisplayConfig{Columns: h.Columns}
	}
	return plan
}

func jsonPlan() core.DisplayPlan {
	return core.DisplayPlan{Type: core.DisplayJSON}
}

// inferStructure applies shape-based rules to a decoded JSON value.
func inferStructure(output json.RawMessage) core.DisplayPlan {
	if len(output) == 0 {
		return jsonPlan()
	}

	var value interface{}
	if err := json.Unmarshal(output, &value); err != nil {
		return jsonPlan()
	}

	switch v := value.(type) {
	case []interface{}:
		return tablePlan(v, output)
	case map[string]interface{}:
		// A single object wrapping its payload in a conventional array key is
		// classified by that array; the first non-empty one wins.
		for _, key := range nestedArrayKeys {
			if arr, ok := v[key].([]interface{}); ok && len(arr) > 0 {
				return tablePlan(arr, rawField(output, key))
			}
		}
		// Plain object: a two-column key/value table, columns decided per row
		// at render time.
		return core.DisplayPlan{Type: core.DisplayTable}
	default:
		// Scalars carry no structure worth inferring.
		return jsonPlan()
	}
}

// tablePlan builds a table plan for an array value. raw is the serialized
// form of the same array and preserves the first element's key order, which
// map iteration would lose.
func tablePlan(arr []interface{}, raw json.RawMessage) core.DisplayPlan {
	if len(arr) == 0 {
		return jsonPlan()
	}
	first, ok := arr[0].(map[string]interface{})
	if !ok {
		return jsonPlan()
	}

	cols := InferColumns(first, firstElementKeys(raw))
	plan := core.DisplayPlan{Type: core.DisplayTable}
	if len(cols) > 0 {
		plan.Config = &core.DisplayConfig{Columns: cols}
	}
	return plan
}
