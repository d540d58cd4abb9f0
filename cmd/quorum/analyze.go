package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/quorum/internal/app"
	"github.com/newthinker/quorum/internal/consensus"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Print a one-shot consensus report",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := a.Analyze(ctx, args[0])
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", args[0], err)
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(report)
	return nil
}

func printReport(r consensus.Report) {
	fmt.Printf("=== %s @ %.2f ===\n", r.Symbol, r.Price)
	fmt.Printf("Consensus:  %s (%d%%)\n", r.Direction, r.Confidence)
	fmt.Printf("Scores:     buy %.3f / sell %.3f\n", r.BuyScore, r.SellScore)
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ANALYZER\tWEIGHT\tDIRECTION\tCONFIDENCE\tSIGNALS\t")
	fmt.Fprintln(w, "--------\t------\t---------\t----------\t-------\t")
	for _, a := range r.Analyses {
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%d\t%d\t\n",
			a.Name, a.Weight, a.Result.Direction, a.Result.Confidence, len(a.Result.Signals))
	}
	w.Flush()

	if len(r.DangerSignals) > 0 {
		fmt.Println()
		fmt.Println("Danger signals:")
		for _, d := range r.DangerSignals {
			fmt.Printf("  %s/%s strength %.0f importance %d\n", d.Analyzer, d.Name, d.Strength, d.Importance)
		}
	}
}
