package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/gocvot"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Weigh causal vectors with documentation context",
	Long: `Load the assembled snapshot and the session file, send the causal vectors
to the LLM in batches together with the source text they were extracted
from, and write the weighted snapshot. Both inputs must exist.

Examples:
  cvot reconcile --config mcu.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// The document is not needed to reconcile.
		cfg.PDFPath = ""

		rec, stop := startMetrics(cfg.MetricsAddr)
		defer stop()

		engine, err := gocvot.New(cfg, rec)
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		sum, err := engine.Reconcile(ctx)
		if err != nil {
			return err
		}
		return outputResult(sum)
	},
}
