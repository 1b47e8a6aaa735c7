// Package defs reads and writes workflow definitions as YAML files, the
// format used for import/export and the watched definitions directory.
package defs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mlorenz/socialflow/internal/core"
)

// fileDefinition is the YAML shape of a workflow definition. Step params and
// trigger config are free-form YAML maps converted to JSON on load.
type fileDefinition struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Status      string        `yaml:"status,omitempty"`
	Trigger     fileTrigger   `yaml:"trigger,omitempty"`
	Steps       []fileStep    `yaml:"steps"`
	DisplayHint *fileDispHint `yaml:"display_hint,omitempty"`
}

type fileTrigger struct {
	Type   string         `yaml:"type,omitempty"`
	Config map[string]any `yaml:"config,omitempty"`
}

type fileStep struct {
	ID     string         `yaml:"id,omitempty"`
	Module string         `yaml:"module"`
	Params map[string]any `yaml:"params,omitempty"`
}

type fileDispHint struct {
	Type    string       `yaml:"type"`
	Columns []fileColumn `yaml:"columns,omitempty"`
}

type fileColumn struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label,omitempty"`
	Type  string `yaml:"type,omitempty"`
}

// Load reads one YAML definition file.
func Load(path string) (*core.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML definition bytes.
func Parse(data []byte) (*core.WorkflowDefinition, error) {
	var fd fileDefinition
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}

	def := &core.WorkflowDefinition{
		ID:          core.WorkflowID(fd.ID),
		Name:        fd.Name,
		Description: fd.Description,
		Status:      core.WorkflowStatus(fd.Status),
		Trigger: core.Trigger{
			Type: core.TriggerType(fd.Trigger.Type),
		},
	}
	if def.Status == "" {
		def.Status = core.WorkflowStatusDraft
	}

	if len(fd.Trigger.Config) > 0 {
		raw, err := json.Marshal(fd.Trigger.Config)
		if err != nil {
			return nil, fmt.Errorf("encoding trigger config: %w", err)
		}
		def.Trigger.Config = raw
	}

	for _, fs := range fd.Steps {
		step := core.Step{ID: fs.ID, Module: fs.Module}
		if len(fs.Params) > 0 {
			raw, err := json.Marshal(fs.Params)
			if err != nil {
				return nil, fmt.Errorf("encoding step params: %w", err)
			}
			step.Params = raw
		}
		def.Steps = append(def.Steps, step)
	}

	if fd.DisplayHint != nil {
		hint := &core.DisplayHint{Type: core.DisplayType(fd.DisplayHint.Type)}
		for _, fc := range fd.DisplayHint.Columns {
			hint.Columns = append(hint.Columns, core.Column{
				Key:   fc.Key,
				Label: fc.Label,
				Type:  core.CellType(fc.Type),
			})
		}
		def.DisplayHint = hint
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Save writes one definition as YAML, atomically.
func Save(path string, def *core.WorkflowDefinition) error {
	data, err := Marshal(def)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating definitions directory: %w", err)
	}
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing definition: %w", err)
	}
	return nil
}

// Marshal encodes a definition to its YAML file form.
func Marshal(def *core.WorkflowDefinition) ([]byte, error) {
	fd := fileDefinition{
		ID:          string(def.ID),
		Name:        def.Name,
		Description: def.Description,
		Status:      string(def.Status),
		Trigger:     fileTrigger{Type: string(def.Trigger.Type)},
	}

	if len(def.Trigger.Config) > 0 {
		var cfg map[string]any
		if err := json.Unmarshal(def.Trigger.Config, &cfg); err != nil {
			return nil, fmt.Errorf("decoding trigger config: %w", err)
		}
		fd.Trigger.Config = cfg
	}

	for _, step := range def.Steps {
		fs := fileStep{ID: step.ID, Module: step.Module}
		if len(step.Params) > 0 {
			var params map[string]any
			if err := json.Unmarshal(step.Params, &params); err != nil {
				return nil, fmt.Errorf("decoding step params: %w", err)
			}
			fs.Params = params
		}
		fd.Steps = append(fd.Steps, fs)
	}

	if def.DisplayHint != nil {
		hint := &fileDispHint{Type: string(def.DisplayHint.Type)}
		for _, col := range def.DisplayHint.Columns {
			hint.Columns = append(hint.Columns, fileColumn{
				Key:   col.Key,
				Label: col.Label,
				Type:  string(col.Type),
			})
		}
		fd.DisplayHint = hint
	}

	return yaml.Marshal(&fd)
}

// LoadDir reads every *.yaml and *.yml definition in a directory, sorted by
// file name. Files that fail to parse are reported together after the valid
// ones load.
func LoadDir(dir string) ([]*core.WorkflowDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading definitions directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsDefinitionFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var defs []*core.WorkflowDefinition
	var failures []string
	for _, name := range names {
		def, err := Load(filepath.Join(dir, name))
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		defs = append(defs, def)
	}
	if len(failures) > 0 {
		return defs, fmt.Errorf("failed to load %d definition(s): %s", len(failures), strings.Join(failures, "; "))
	}
	return defs, nil
}

// IsDefinitionFile reports whether a file name looks like a definition.
func IsDefinitionFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Touch updates a definition's timestamps for an upsert: CreatedAt is set
// only when zero.
func Touch(def *core.WorkflowDefinition, now time.Time) {
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now
}
