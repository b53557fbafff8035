package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"RisingStock/internal/collector"
	"RisingStock/internal/model"
	"RisingStock/internal/notifier"
	"RisingStock/internal/pipeline"
	"RisingStock/internal/recorder"
	"RisingStock/internal/symbol"
)

// App is the part of pipeline.App the scheduler drives.
type App interface {
	Run(ctx context.Context, sheet string) ([]model.ViewRow, *model.BatchReport, error)
	Watchlist(ctx context.Context, codes []string, opts collector.WatchlistOptions) ([]model.WatchlistRow, *model.BatchReport)
	RecentRuns(limit int) ([]recorder.RunSummary, error)
	State() pipeline.State
}

// Sender delivers formatted reports.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	App       App
	Notifier  Sender
	Watchlist []string
	Ctx       context.Context
	Now       func() time.Time
	log       zerolog.Logger
}

// NewScheduler creates a new Scheduler. notifier may be nil, in which case
// reports are only logged.
func NewScheduler(ctx context.Context, app App, n Sender, watchlist []string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		App:       app,
		Notifier:  n,
		Watchlist: watchlist,
		Ctx:       ctx,
		Now:       time.Now,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the screening task and, when a watchlist is
// configured, the watchlist task.
func (s *Scheduler) RegisterAll(screenCron, watchlistCron string) error {
	if _, err := s.Cron.AddFunc(screenCron, s.screenTask); err != nil {
		return fmt.Errorf("register screen task: %w", err)
	}
	if len(s.Watchlist) == 0 || watchlistCron == "" {
		return nil
	}
	if _, err := s.Cron.AddFunc(watchlistCron, s.watchlistTask); err != nil {
		return fmt.Errorf("register watchlist task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunScreenNow executes the screening task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunScreenNow() {
	s.screenTask()
}

// RunWatchlistNow executes the watchlist task immediately.
func (s *Scheduler) RunWatchlistNow() {
	s.watchlistTask()
}

func (s *Scheduler) screenTask() {
	s.log.Info().Msg("running screen task")
	s.trySend(s.screen(s.Ctx))
}

func (s *Scheduler) screen(ctx context.Context) string {
	rows, report, err := s.App.Run(ctx, "")
	if err != nil {
		s.log.Error().Err(err).Msg("screen task failed")
		if errors.Is(err, pipeline.ErrNoData) {
			return "❌ 사용할 수 있는 가격 데이터가 없습니다."
		}
		return fmt.Sprintf("❌ 스크리닝 실패: %v", err)
	}
	return notifier.FormatScreenReport(rows, report, s.Now())
}

func (s *Scheduler) watchlistTask() {
	s.log.Info().Int("codes", len(s.Watchlist)).Msg("running watchlist task")
	s.trySend(s.watchlist(s.Ctx, s.Watchlist))
}

func (s *Scheduler) watchlist(ctx context.Context, codes []string) string {
	rows, report := s.App.Watchlist(ctx, codes, collector.WatchlistOptions{})
	return notifier.FormatWatchlist(rows, report, s.Now())
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help
	}
	switch fields[0] {
	case "/screen":
		return s.screen(ctx)
	case "/watch":
		codes := s.Watchlist
		if len(fields) > 1 {
			codes = symbol.SplitCodes(strings.Join(fields[1:], ","))
		}
		if len(codes) == 0 {
			return "워치리스트가 비어 있습니다. 예: /watch 005930,AAPL"
		}
		return s.watchlist(ctx, codes)
	case "/status":
		return s.status()
	case "/runs":
		runs, err := s.App.RecentRuns(10)
		if err != nil {
			return fmt.Sprintf("❌ 실행 기록 조회 실패: %v", err)
		}
		return notifier.FormatRuns(runs)
	default:
		return help
	}
}

const help = "사용 가능한 명령:\n• /screen 스크리닝 실행\n• /watch [코드,...] 거래량 분석\n• /status 캐시 상태\n• /runs 최근 실행"

func (s *Scheduler) status() string {
	st := s.App.State()
	cached := 0
	if st.Snapshot != nil {
		cached = len(st.Snapshot.Series)
	}
	var b strings.Builder
	b.WriteString("📦 <b>상태</b>\n\n")
	b.WriteString(fmt.Sprintf("대상 종목: %d\n", len(st.Tickers)))
	b.WriteString(fmt.Sprintf("캐시 종목: %d\n", cached))
	b.WriteString(fmt.Sprintf("현재 후보: %d\n", len(st.Rows)))
	if st.Report != nil {
		b.WriteString(fmt.Sprintf("최근 실패: %d\n", st.Report.Len()))
	}
	if !st.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("갱신 시각: %s\n", st.UpdatedAt.Format("2006-01-02 15:04")))
	}
	return b.String()
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		s.log.Info().Str("report", text).Msg("notifier disabled")
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification failed")
	}
}
