package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"RisingStock/internal/filter"
	"RisingStock/internal/model"
	"RisingStock/internal/notifier"
)

var screenOpts struct {
	sheet      string
	noRefresh  bool
	per        string
	pbr        string
	revGrowth  string
	epsGrowth  string
	sectors    []string
	turnaround []string
	instOnly   bool
	noDefaults bool
	notify     bool
	asJSON     bool
}

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Refresh prices, screen the universe and print the candidates",
	RunE:  runScreen,
}

func init() {
	f := screenCmd.Flags()
	f.StringVar(&screenOpts.sheet, "sheet", "", "ticker spreadsheet name (default from config)")
	f.BoolVar(&screenOpts.noRefresh, "no-refresh", false, "screen cached prices without fetching")
	f.StringVar(&screenOpts.per, "per", "", "PER range lo:hi")
	f.StringVar(&screenOpts.pbr, "pbr", "", "PBR range lo:hi")
	f.StringVar(&screenOpts.revGrowth, "rev-growth", "", "revenue growth range lo:hi")
	f.StringVar(&screenOpts.epsGrowth, "eps-growth", "", "EPS growth range lo:hi")
	f.StringSliceVar(&screenOpts.sectors, "sector", nil, "keep only these sectors")
	f.StringSliceVar(&screenOpts.turnaround, "turnaround", nil, "keep only these turnaround statuses")
	f.BoolVar(&screenOpts.instOnly, "inst-only", false, "keep only rows with institutional support")
	f.BoolVar(&screenOpts.noDefaults, "no-defaults", false, "do not start from the default filter ranges")
	f.BoolVar(&screenOpts.notify, "notify", false, "send the report to Telegram")
	f.BoolVar(&screenOpts.asJSON, "json", false, "print JSON")
}

func screenCriteria(rows []model.ViewRow) (filter.Criteria, error) {
	var c filter.Criteria
	if !screenOpts.noDefaults {
		c = filter.DefaultCriteria(rows)
	}
	for _, f := range []struct {
		raw string
		dst **filter.Range
	}{
		{screenOpts.per, &c.PER},
		{screenOpts.pbr, &c.PBR},
		{screenOpts.revGrowth, &c.RevGrowth},
		{screenOpts.epsGrowth, &c.EPSGrowth},
	} {
		r, err := filter.ParseRange(f.raw)
		if err != nil {
			return c, err
		}
		if r != nil {
			*f.dst = r
		}
	}
	c.Sectors = screenOpts.sectors
	for _, t := range screenOpts.turnaround {
		c.Turnaround = append(c.Turnaround, model.TurnaroundStatus(t))
	}
	c.InstOnly = screenOpts.instOnly
	return c, nil
}

func runScreen(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(screenOpts.notify); err != nil {
		return err
	}
	app, cleanup, err := buildApp(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		rows   []model.ViewRow
		report *model.BatchReport
	)
	if screenOpts.noRefresh {
		rows, report, err = app.Screen(ctx)
	} else {
		rows, report, err = app.Run(ctx, screenOpts.sheet)
	}
	if err != nil {
		return err
	}

	crit, err := screenCriteria(rows)
	if err != nil {
		return err
	}
	rows = filter.Apply(rows, crit)

	out := cmd.OutOrStdout()
	if screenOpts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"rows": rows, "failures": report.Messages()})
	}
	printCandidates(out, rows)
	printFailures(out, report)

	if screenOpts.notify {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		if err := tn.SendWithRetry(ctx, notifier.FormatScreenReport(rows, report, time.Now()), 3); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}
	return nil
}

func opt(p *float64, format string) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf(format, *p)
}

func printCandidates(w io.Writer, rows []model.ViewRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No stocks met the criteria.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Ticker\tName\tPrice\tVolatility\tVol x\tInst\tSector\tTurnaround\tPER\tPBR")
	for i := range rows {
		r := &rows[i]
		inst := ""
		if r.InstSupport {
			inst = "✔"
		}
		var per, pbr *float64
		if r.Fundamentals != nil {
			per, pbr = r.Fundamentals.PER, r.Fundamentals.PBR
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%.2f\t%s\t%s\t%s\t%s\t%s\n",
			r.Symbol, r.Name, humanize.CommafWithDigits(r.Price, 2), r.Volatility*100, r.VolumeRatio,
			inst, r.Sector(), r.Turnaround(), opt(per, "%.1f"), opt(pbr, "%.2f"))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d candidates\n", len(rows))
}

func printFailures(w io.Writer, report *model.BatchReport) {
	if report == nil || report.Len() == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d failures:\n", report.Len())
	for _, m := range report.Messages() {
		fmt.Fprintln(w, "  "+m)
	}
}
