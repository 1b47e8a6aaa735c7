package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mlorenz/socialflow/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and environment",
	Long:  "Verify that the configuration is valid and the environment is ready to run workflows.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	fmt.Println("Checking configuration...")
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  ✗ configuration invalid: %v\n", err)
		return fmt.Errorf("configuration check failed")
	}
	fmt.Println("  ✓ configuration valid")

	allOk := true

	if err := checkWritableDir(filepath.Dir(cfg.Database.Path)); err != nil {
		fmt.Printf("  ✗ database directory: %v\n", err)
		allOk = false
	} else {
		fmt.Printf("  ✓ database path %s\n", cfg.Database.Path)
	}

	if err := checkWritableDir(cfg.Workflow.DefinitionsDir); err != nil {
		fmt.Printf("  ✗ definitions directory: %v\n", err)
		allOk = false
	} else {
		fmt.Printf("  ✓ definitions directory %s\n", cfg.Workflow.DefinitionsDir)
	}

	fmt.Println()
	fmt.Println("Checking credentials...")
	fmt.Println()
	printCredential("twitter bearer token", cfg.Twitter.BearerToken)
	printCredential("rapidapi key", cfg.RapidAPI.Key)

	fmt.Println()
	fmt.Println("System...")
	fmt.Println()
	metrics := diagnostics.NewCollector().Collect()
	fmt.Printf("  host: %s (%s, %d cores)\n", metrics.Hostname, metrics.GoVersion, metrics.CPUCores)
	fmt.Printf("  memory: %.1f%% used, disk: %.1f%% used\n", metrics.MemPercent, metrics.DiskPercent)

	fmt.Println()
	if !allOk {
		return fmt.Errorf("environment check failed")
	}
	fmt.Println("Everything looks good.")
	return nil
}

// checkWritableDir ensures the directory exists and is writable by creating
// and removing a probe file.
func checkWritableDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".socialflow-doctor")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		return err
	}
	return os.Remove(probe)
}

func printCredential(name, value string) {
	if value == "" {
		fmt.Printf("  ○ %s not set (optional)\n", name)
		return
	}
	fmt.Printf("  ✓ %s configured\n", name)
}
