package main

import (
	"RisingStock/internal/collector"
	"RisingStock/internal/metrics"
	"RisingStock/internal/pipeline"
	"RisingStock/internal/recorder"
	"RisingStock/internal/tickersource"
)

// buildApp wires the production dependencies. The returned cleanup closes the
// run recorder.
func buildApp(m *metrics.Recorder) (*pipeline.App, func(), error) {
	if err := cfg.Validate(false); err != nil {
		return nil, nil, err
	}

	yahoo := collector.NewYahooFetcher(collector.YahooOptions{
		Proxy:             cfg.Proxy,
		RequestsPerSecond: cfg.Yahoo.RequestsPerSecond,
		Burst:             cfg.Yahoo.Burst,
		NewsCount:         cfg.Yahoo.NewsCount,
	}, log)
	log.Info().Str("source", yahoo.Name()).Msg("data source")

	var src tickersource.Source
	sourceName := cfg.Tickers.SpreadsheetName
	if cfg.Tickers.File != "" {
		src = &tickersource.FileSource{Column: cfg.Tickers.Column}
		sourceName = cfg.Tickers.File
	} else {
		src = tickersource.NewSheetSource(cfg.Tickers.CredentialsFile, cfg.Tickers.CredentialsJSON,
			cfg.Tickers.Worksheet, cfg.Tickers.Column, log)
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	cleanup := func() {}
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			cleanup = func() {
				if err := sr.Close(); err != nil {
					log.Warn().Err(err).Msg("close recorder")
				}
			}
		}
	}

	app := pipeline.New(cfg, pipeline.Deps{
		Source:       src,
		History:      yahoo,
		Fundamentals: yahoo,
		Recorder:     rec,
		Metrics:      m,
	}, log)
	app.SourceName = sourceName
	app.Start()
	return app, cleanup, nil
}
