package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"RisingStock/internal/metrics"
	"RisingStock/internal/notifier"
	"RisingStock/internal/scheduler"
	"RisingStock/internal/symbol"
)

var daemonOpts struct {
	runOnStart bool
	withAPI    bool
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled screening and watchlist reports with Telegram delivery",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(true); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		app, cleanup, err := buildApp(m)
		if err != nil {
			return err
		}
		defer cleanup()

		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sched := scheduler.NewScheduler(ctx, app, tn, symbol.SplitCodes(cfg.Schedule.Watchlist), log)
		if err := sched.RegisterAll(cfg.Schedule.ScreenCron, cfg.Schedule.WatchlistCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")

		if daemonOpts.runOnStart || os.Getenv("RUN_ON_START") == "true" {
			log.Info().Msg("run on start enabled, executing screen task now")
			go sched.RunScreenNow()
		}

		log.Info().Msg("rising stock daemon is running, press Ctrl+C to stop")
		if daemonOpts.withAPI {
			return serveUntilDone(ctx, app, m)
		}
		<-ctx.Done()
		log.Info().Msg("shutdown signal received, stopping...")
		return nil
	},
}

func init() {
	f := daemonCmd.Flags()
	f.BoolVar(&daemonOpts.runOnStart, "run-on-start", false, "run the screen task immediately")
	f.BoolVar(&daemonOpts.withAPI, "api", false, "also serve the HTTP API")
	f.StringVar(&serveAddr, "addr", "", "API listen address when --api is set")
}
