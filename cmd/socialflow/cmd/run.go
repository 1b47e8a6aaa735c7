package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mlorenz/socialflow/internal/core"
	"github.com/mlorenz/socialflow/internal/runs"
	"github.com/mlorenz/socialflow/internal/usage"
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-id>",
	Short: "Run a workflow once",
	Long: `Trigger a single manual run of a workflow and wait for it to finish.
The run record is printed as JSON when it completes. Input for the
first step can be provided with --input or --input-file.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

var (
	runInput     string
	runInputFile string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runInput, "input", "", "JSON payload for the first step")
	runCmd.Flags().StringVarP(&runInputFile, "input-file", "f", "", "read the JSON payload from a file")
}

func runWorkflow(_ *cobra.Command, args []string) error {
	payload, err := runPayload()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ledger := usage.NewLedger(st, usage.WithLogger(logger.Logger))
	exec, err := buildExecutor(cfg, logger, ledger)
	if err != nil {
		return err
	}

	coordinator := runs.NewCoordinator(st, st, exec,
		runs.WithLogger(logger.Logger),
		runs.WithRunTimeout(cfg.Workflow.RunTimeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := coordinator.Start(ctx, core.WorkflowID(args[0]), core.TriggerManual, payload)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))

	if run.Status == core.RunStatusError {
		return fmt.Errorf("run finished with error at step %q: %s", run.ErrorStep, run.Error)
	}
	return nil
}

func runPayload() (json.RawMessage, error) {
	if runInput != "" && runInputFile != "" {
		return nil, fmt.Errorf("--input and --input-file are mutually exclusive")
	}

	var raw []byte
	switch {
	case runInput != "":
		raw = []byte(runInput)
	case runInputFile != "":
		data, err := os.ReadFile(runInputFile) // #nosec G304 -- user-supplied path
		if err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
		raw = data
	default:
		return nil, nil
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("input payload is not valid JSON")
	}
	return raw, nil
}
