package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mlorenz/socialflow/internal/core"
	"github.com/mlorenz/socialflow/internal/defs"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "Manage workflow definitions",
}

var workflowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored workflows",
	RunE:  runWorkflowsList,
}

var workflowsImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import workflow definitions from a directory of YAML files",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowsImport,
}

var workflowsExportCmd = &cobra.Command{
	Use:   "export <workflow-id> [file]",
	Short: "Export a workflow definition to a YAML file",
	Long: `Export a stored workflow as a YAML definition file. When no file
is given the definition is written to <workflow-id>.yaml in the
current directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWorkflowsExport,
}

func init() {
	rootCmd.AddCommand(workflowsCmd)
	workflowsCmd.AddCommand(workflowsListCmd)
	workflowsCmd.AddCommand(workflowsImportCmd)
	workflowsCmd.AddCommand(workflowsExportCmd)
}

func runWorkflowsList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	all, err := st.ListWorkflows(context.Background())
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No workflows stored.")
		return nil
	}

	fmt.Printf("%-28s %-8s %-8s %-6s %s\n", "ID", "STATUS", "TRIGGER", "STEPS", "UPDATED")
	for _, def := range all {
		fmt.Printf("%-28s %-8s %-8s %-6d %s\n",
			def.ID, def.Status, def.Trigger.Type, len(def.Steps),
			humanize.Time(def.UpdatedAt))
	}
	return nil
}

func runWorkflowsImport(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	loaded, err := defs.LoadDir(args[0])
	if err != nil {
		return err
	}
	if len(loaded) == 0 {
		fmt.Printf("No definition files found in %s\n", args[0])
		return nil
	}

	ctx := context.Background()
	now := time.Now()
	for _, def := range loaded {
		if existing, err := st.GetWorkflow(ctx, def.ID); err == nil {
			def.CreatedAt = existing.CreatedAt
		}
		defs.Touch(def, now)
		if err := st.SaveWorkflow(ctx, def); err != nil {
			return fmt.Errorf("saving workflow %s: %w", def.ID, err)
		}
		fmt.Printf("  ✓ %s (%s)\n", def.ID, def.Name)
	}
	fmt.Printf("Imported %d workflow(s)\n", len(loaded))
	return nil
}

func runWorkflowsExport(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	def, err := st.GetWorkflow(context.Background(), core.WorkflowID(args[0]))
	if err != nil {
		return err
	}

	path := args[0] + ".yaml"
	if len(args) == 2 {
		path = filepath.Clean(args[1])
	}

	if err := defs.Save(path, def); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Exported %s to %s\n", def.ID, path)
	return nil
}
