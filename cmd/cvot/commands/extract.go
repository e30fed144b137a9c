package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/gocvot"
)

var (
	extractPDF      string
	extractNoResume bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract entities and relationships and assemble the graph",
	Long: `Locate the sections of the manual whose titles match the schema's index
keywords, extract entities and causal relationships from each, and assemble
the deduplicated graph snapshot.

Every processed section is checkpointed to the session file. An interrupted
run resumes after the last completed section; sections already recorded are
never sent to the LLM again.

Examples:
  cvot extract --config mcu.yaml
  cvot extract --pdf mspm0c1104.pdf --no-resume --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if extractPDF != "" {
			cfg.PDFPath = extractPDF
		}
		if extractNoResume {
			cfg.Resume = false
		}

		rec, stop := startMetrics(cfg.MetricsAddr)
		defer stop()

		engine, err := gocvot.New(cfg, rec)
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		sum, err := engine.Extract(ctx)
		if err != nil {
			return err
		}
		return outputResult(sum)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractPDF, "pdf", "", "manual to extract from (overrides config)")
	extractCmd.Flags().BoolVar(&extractNoResume, "no-resume", false, "ignore the existing session file")
}
