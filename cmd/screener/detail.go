package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"RisingStock/internal/detail"
	"RisingStock/internal/symbol"
)

var detailOpts struct {
	period string
	asJSON bool
}

var detailCmd = &cobra.Command{
	Use:   "detail TICKER...",
	Short: "Compare returns, key metrics and news of selected candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDetail,
}

func init() {
	f := detailCmd.Flags()
	f.StringVarP(&detailOpts.period, "period", "p", detail.DefaultPeriod, "return window: 1M, 3M, 6M or 1Y")
	f.BoolVar(&detailOpts.asJSON, "json", false, "print JSON")
}

func runDetail(cmd *cobra.Command, args []string) error {
	app, cleanup, err := buildApp(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics and news come from the joined rows of a screen over cached prices.
	if _, _, err := app.Screen(ctx); err != nil {
		return fmt.Errorf("screen cached prices: %w", err)
	}
	tickers := symbol.SplitCodes(strings.Join(args, ","))
	view, err := app.Detail(tickers, detailOpts.period)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if detailOpts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return view.Render(out)
}
