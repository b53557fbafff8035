package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"RisingStock/internal/collector"
	"RisingStock/internal/filter"
	"RisingStock/internal/model"
	"RisingStock/internal/pipeline"
	"RisingStock/internal/symbol"
)

// maxCodes caps one watchlist request.
const maxCodes = 100

type candidatesRequest struct {
	PER        string   `query:"per"`
	PBR        string   `query:"pbr"`
	RevGrowth  string   `query:"rev_growth"`
	EPSGrowth  string   `query:"eps_growth"`
	Sectors    []string `query:"sector"`
	Turnaround []string `query:"turnaround"`
	InstOnly   bool     `query:"inst_only"`
	Defaults   string   `query:"defaults" default:"true" validate:"oneof=true false"`
}

type detailRequest struct {
	Tickers string `query:"tickers" validate:"required"`
	Period  string `query:"period" default:"3M"`
}

type watchlistRequest struct {
	Codes  string `query:"codes"`
	Lagged bool   `query:"lagged"`
	Only   bool   `query:"only"`
}

type runsRequest struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=200"`
}

type refreshRequest struct {
	Sheet string `json:"sheet" query:"sheet"`
}

type candidatesData struct {
	ListData
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) health(c echo.Context) error {
	st := s.app.State()
	cached := 0
	if st.Snapshot != nil {
		cached = len(st.Snapshot.Series)
	}
	return success(c, map[string]any{
		"status":     "ok",
		"tickers":    len(st.Tickers),
		"cached":     cached,
		"candidates": len(st.Rows),
		"updated_at": st.UpdatedAt,
	})
}

// criteria converts the query into filter criteria. Ranges start from the
// defaults derived from rows unless defaults=false; explicit ranges override.
func (r *candidatesRequest) criteria(rows []model.ViewRow) (filter.Criteria, []ValidationError) {
	var c filter.Criteria
	if r.Defaults != "false" {
		c = filter.DefaultCriteria(rows)
	}
	var errs []ValidationError
	for _, f := range []struct {
		name string
		raw  string
		dst  **filter.Range
	}{
		{"per", r.PER, &c.PER},
		{"pbr", r.PBR, &c.PBR},
		{"rev_growth", r.RevGrowth, &c.RevGrowth},
		{"eps_growth", r.EPSGrowth, &c.EPSGrowth},
	} {
		rg, err := filter.ParseRange(f.raw)
		if err != nil {
			errs = append(errs, ValidationError{Code: "ERR_RANGE", Field: f.name, Message: err.Error()})
			continue
		}
		if rg != nil {
			*f.dst = rg
		}
	}
	c.Sectors = r.Sectors
	for _, t := range r.Turnaround {
		c.Turnaround = append(c.Turnaround, model.TurnaroundStatus(t))
	}
	c.InstOnly = r.InstOnly
	return c, errs
}

func (s *Server) candidates(c echo.Context) error {
	req := &candidatesRequest{}
	if verr := readAndValidate(c, req); verr != nil {
		return badRequest(c, verr)
	}
	st := s.app.State()
	crit, verr := req.criteria(st.Rows)
	if verr != nil {
		return badRequest(c, verr)
	}
	rows := filter.Apply(st.Rows, crit)
	data := candidatesData{ListData: ListData{Rows: rows, Total: len(rows)}, UpdatedAt: st.UpdatedAt}
	if st.Report != nil {
		data.Failures = st.Report.Messages()
	}
	return success(c, data)
}

func (s *Server) filters(c echo.Context) error {
	rows := s.app.State().Rows
	return success(c, map[string]any{
		"choices":  filter.Options(rows),
		"defaults": filter.DefaultCriteria(rows),
	})
}

func (s *Server) detail(c echo.Context) error {
	req := &detailRequest{}
	if verr := readAndValidate(c, req); verr != nil {
		return badRequest(c, verr)
	}
	tickers := symbol.SplitCodes(req.Tickers)
	view, err := s.app.Detail(tickers, req.Period)
	if errors.Is(err, pipeline.ErrNoData) {
		return respond(c, http.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		return badRequest(c, []ValidationError{{Code: "ERR_PERIOD", Field: "period", Message: err.Error()}})
	}
	return success(c, view)
}

func (s *Server) watchlistRows(c echo.Context) error {
	req := &watchlistRequest{}
	if verr := readAndValidate(c, req); verr != nil {
		return badRequest(c, verr)
	}
	codes := s.watchlist
	if strings.TrimSpace(req.Codes) != "" {
		codes = symbol.SplitCodes(req.Codes)
	}
	if len(codes) == 0 {
		return badRequest(c, []ValidationError{{Code: "ERR_REQUIRED", Field: "codes", Message: "codes is required"}})
	}
	if len(codes) > maxCodes {
		return badRequest(c, []ValidationError{{Code: "ERR_MAX", Field: "codes", Message: "too many codes"}})
	}
	rows, report := s.app.Watchlist(c.Request().Context(), codes, collector.WatchlistOptions{Lagged: req.Lagged, OnlyQualifying: req.Only})
	return success(c, ListData{Rows: rows, Total: len(rows), Failures: report.Messages()})
}

func (s *Server) runs(c echo.Context) error {
	req := &runsRequest{}
	if verr := readAndValidate(c, req); verr != nil {
		return badRequest(c, verr)
	}
	runs, err := s.app.RecentRuns(req.Limit)
	if err != nil {
		s.log.Error().Err(err).Msg("recent runs failed")
		return respond(c, http.StatusInternalServerError, "Something went wrong")
	}
	return success(c, ListData{Rows: runs, Total: len(runs)})
}

func (s *Server) refresh(c echo.Context) error {
	req := &refreshRequest{}
	if verr := readAndValidate(c, req); verr != nil {
		return badRequest(c, verr)
	}
	if !s.refreshMu.TryLock() {
		return respond(c, http.StatusConflict, "refresh already running")
	}
	defer s.refreshMu.Unlock()

	rows, report, err := s.app.Run(c.Request().Context(), req.Sheet)
	if errors.Is(err, pipeline.ErrNoData) {
		return respond(c, http.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		s.log.Error().Err(err).Msg("refresh failed")
		return respond(c, http.StatusInternalServerError, err.Error())
	}
	return success(c, ListData{Rows: rows, Total: len(rows), Failures: report.Messages()})
}
