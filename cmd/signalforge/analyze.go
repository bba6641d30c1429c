package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	handler "github.com/newthinker/signalforge/internal/api/handler/api"
	"github.com/spf13/cobra"
)

var (
	analyzeExplain bool
	analyzeCompact bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze TICKER",
	Short: "Compute a Buy/Sell/Hold signal for one ticker",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeExplain, "explain", false, "attach an LLM explanation (requires llm config)")
	analyzeCmd.Flags().BoolVar(&analyzeCompact, "compact", false, "print single-line JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sig, err := a.pipeline.Run(ctx, args[0])
	if err != nil {
		return err
	}

	out := handler.SignalResponse{Signal: sig}
	if analyzeExplain {
		if !a.explainer.Enabled() {
			return fmt.Errorf("--explain requires llm.provider to be configured")
		}
		out.Explanation = a.explainer.Explain(ctx, sig)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !analyzeCompact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
