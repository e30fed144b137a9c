package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/brunobiangulo/gocvot"
	"github.com/brunobiangulo/gocvot/metrics"
)

var (
	// Global flags
	cfgFile    string
	outputFile string
	outputJSON bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cvot",
	Short: "Causal Vector Orchestration Template builder",
	Long: `cvot extracts troubleshooting knowledge from technical manuals into a
weighted causal graph of error conditions, status indicators, components,
root causes and solutions.

A typical run:
  cvot extract --config mcu.yaml      # sections -> intermediate_data.json -> cvot.json
  cvot reconcile --config mcu.yaml    # cvot.json -> cvot_weighted.json
  cvot stats cvot_weighted.json

Configuration is read from a YAML or JSON file and GOCVOT_* environment
variables (GOCVOT_CHAT_PROVIDER, GOCVOT_CHAT_MODEL, GOCVOT_CHAT_API_KEY, ...).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(traceCmd)
}

// loadConfig reads the config file and applies environment overrides.
func loadConfig() (gocvot.Config, error) {
	cfg, err := gocvot.LoadConfig(cfgFile)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// startMetrics serves Prometheus metrics on addr for the duration of a run.
// An empty addr disables metrics.
func startMetrics(addr string) (metrics.Recorder, func()) {
	if addr == "" {
		return metrics.Noop(), func() {}
	}
	p := metrics.NewPrometheus()
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
	return p, func() { srv.Shutdown(context.Background()) }
}

// outputResult writes result as YAML, or JSON with --json, to -o or stdout.
func outputResult(result any) error {
	var (
		data []byte
		err  error
	)
	if outputJSON {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = yaml.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if outputJSON {
		_, err = io.WriteString(w, "\n")
	}
	return err
}
