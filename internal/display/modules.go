package display

import "github.com/mlorenz/socialflow/internal/core"

// moduleHints maps step module identifiers to display hints. The mapping is
// consulted only when the workflow configuration carries no explicit hint;
// unknown modules fall through to structural inference. Entries exist only
// for modules the executor can register.
var moduleHints = map[string]core.DisplayHint{
	"twitter.search": {
		Type: core.DisplayTable,
		Columns: []core.Column{
			{Key: "text", Label: "Text", Type: core.CellText},
			{Key: "author.name", Label: "Author", Type: core.CellText},
			{Key: "created_at", Label: "Created At", Type: core.CellDate},
			{Key: "url", Label: "Url", Type: core.CellLink},
		},
	},
	"twitter.timeline": {Type: core.DisplayTable},
	"twitter.post":     {Type: core.DisplayTable},
	"twitter.reply":    {Type: core.DisplayTable},
}

// ModuleHint returns the registered hint for a module identifier.
func ModuleHint(module string) (core.DisplayHint, bool) {
	h, ok := moduleHints[module]
	return h, ok
}
