package core

// DisplayType enumerates the rendering shapes a run output can take.
type DisplayType string

const (
	DisplayTable    DisplayType = "table"
	DisplayImage    DisplayType = "image"
	DisplayImages   DisplayType = "images"
	DisplayMarkdown DisplayType = "markdown"
	DisplayText     DisplayType = "text"
	DisplayList     DisplayType = "list"
	DisplayJSON     DisplayType = "json"
)

// Valid reports whether the display type is a known value.
func (t DisplayType) Valid() bool {
	switch t {
	case DisplayTable, DisplayImage, DisplayImages, DisplayMarkdown, DisplayText, DisplayList, DisplayJSON:
		return true
	}
	return false
}

// CellType enumerates how a single table cell is rendered.
type CellType string

const (
	CellText    CellType = "text"
	CellLink    CellType = "link"
	CellDate    CellType = "date"
	CellNumber  CellType = "number"
	CellBoolean CellType = "boolean"
)

// Column describes one table column. Key is a dot-separated path into each
// row object; a missing intermediate key yields an empty cell.
type Column struct {
	Key   string   `json:"key" yaml:"key"`
	Label string   `json:"label" yaml:"label"`
	Type  CellType `json:"type,omitempty" yaml:"type,omitempty"`
}

// DisplayHint is an explicit rendering choice carried in a workflow's
// configuration. It wins over all inference.
type DisplayHint struct {
	Type    DisplayType `json:"type" yaml:"type"`
	Columns []Column    `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// DisplayConfig carries type-specific rendering configuration.
type DisplayConfig struct {
	Columns []Column `json:"columns,omitempty"`
}

// DisplayPlan is the decided rendering shape for an opaque JSON output.
type DisplayPlan struct {
	Type   DisplayType    `json:"type"`
	Config *DisplayConfig `json:"config,omitempty"`
}
