package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"RisingStock/internal/collector"
	"RisingStock/internal/model"
	"RisingStock/internal/notifier"
	"RisingStock/internal/symbol"
)

var watchOpts struct {
	lagged bool
	only   bool
	notify bool
	asJSON bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [CODE...]",
	Short: "Analyze today's volume of watchlist codes against their recent averages",
	Long: `Analyze the latest volume of each code against its trailing 3 and 20 day
averages. Six-digit codes are tried on KOSPI first, then KOSDAQ. Without
arguments the configured watchlist is used.`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.BoolVar(&watchOpts.lagged, "lagged", false, "compare the previous session instead of today")
	f.BoolVar(&watchOpts.only, "only", false, "show only codes above 150% of both averages")
	f.BoolVar(&watchOpts.notify, "notify", false, "send the report to Telegram")
	f.BoolVar(&watchOpts.asJSON, "json", false, "print JSON")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(watchOpts.notify); err != nil {
		return err
	}
	codes := symbol.SplitCodes(strings.Join(args, ","))
	if len(codes) == 0 {
		codes = symbol.SplitCodes(cfg.Schedule.Watchlist)
	}
	if len(codes) == 0 {
		return fmt.Errorf("no codes given and no watchlist configured")
	}

	app, cleanup, err := buildApp(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, report := app.Watchlist(ctx, codes, collector.WatchlistOptions{Lagged: watchOpts.lagged, OnlyQualifying: watchOpts.only})

	out := cmd.OutOrStdout()
	if watchOpts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"rows": rows, "failures": report.Messages()})
	}
	printWatchlist(out, rows, len(codes))
	printFailures(out, report)

	if watchOpts.notify {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		if err := tn.SendWithRetry(ctx, notifier.FormatWatchlist(rows, report, time.Now()), 3); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}
	return nil
}

func printWatchlist(w io.Writer, rows []model.WatchlistRow, total int) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No codes to show.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Code\tName\tPrice\tChange\tVolume\tvs 3d\tvs 20d\t")
	for _, r := range rows {
		mark := ""
		if r.Qualifies {
			mark = "✔"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+.2f%%\t%s\t%.0f%%\t%.0f%%\t%s\n",
			r.Code, r.Name, notifier.FormatPrice(r.Price, r.Domestic), r.ChangePct,
			humanize.Comma(int64(r.Volume)), r.Ratio3, r.Ratio20, mark)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nshowing %d of %d codes\n", len(rows), total)
}
