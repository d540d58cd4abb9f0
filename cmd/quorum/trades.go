package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/store"
)

var (
	tradesSymbol string
	tradesFrom   string
	tradesTo     string
	tradesLimit  int
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Show the trade journal",
	RunE:  runTrades,
}

func init() {
	tradesCmd.Flags().StringVar(&tradesSymbol, "symbol", "", "only this symbol")
	tradesCmd.Flags().StringVar(&tradesFrom, "from", "", "start date (YYYY-MM-DD)")
	tradesCmd.Flags().StringVar(&tradesTo, "to", "", "end date (YYYY-MM-DD), exclusive")
	tradesCmd.Flags().IntVar(&tradesLimit, "limit", 50, "maximum records")
	rootCmd.AddCommand(tradesCmd)
}

func runTrades(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	filter := store.TradeFilter{Symbol: tradesSymbol, Limit: tradesLimit}
	if tradesFrom != "" {
		if filter.From, err = time.Parse("2006-01-02", tradesFrom); err != nil {
			return fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
		}
	}
	if tradesTo != "" {
		if filter.To, err = time.Parse("2006-01-02", tradesTo); err != nil {
			return fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
		}
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	trades, err := st.ListTrades(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("listing trades: %w", err)
	}
	if len(trades) == 0 {
		fmt.Println("No trades found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSYMBOL\tACTION\tSIDE\tQTY\tPRICE\tSTATUS\tP&L\t")
	fmt.Fprintln(w, "----\t------\t------\t----\t---\t-----\t------\t---\t")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%.2f\t%s\t%s\t\n",
			t.Time.Format("2006-01-02 15:04"), t.Symbol, t.Action, t.Side,
			t.Quantity, t.Price, t.Status, formatPnL(t))
	}
	return w.Flush()
}

func formatPnL(t core.TradeRecord) string {
	if t.PnL == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f", *t.PnL)
}
