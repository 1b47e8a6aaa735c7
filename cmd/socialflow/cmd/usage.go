package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mlorenz/socialflow/internal/core"
	"github.com/mlorenz/socialflow/internal/usage"
)

var usageCmd = &cobra.Command{
	Use:   "usage <metric>",
	Short: "Show usage counters for a metric",
	Long: `Print the current per-window usage counters for one metric, such
as "post" or "read". Expired windows are shown reset to zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

func runUsage(_ *cobra.Command, args []string) error {
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
	rec, err := ledger.Snapshot(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Usage for %q:\n", args[0])
	fmt.Printf("  %-14s %-8s %s\n", "WINDOW", "COUNT", "RESETS")
	for _, name := range core.WindowOrder {
		w := rec.Windows[name]
		reset := time.UnixMilli(w.ResetAt)
		fmt.Printf("  %-14s %-8d %s\n", name, w.Count, humanize.Time(reset))
	}
	return nil
}
