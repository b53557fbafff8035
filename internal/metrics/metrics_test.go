package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RisingStock/internal/model"
)

func TestRecorder(t *testing.T) {
	r := New()
	r.ObserveRun("screen", time.Now(), nil)
	r.ObserveRun("screen", time.Now(), errors.New("x"))
	report := &model.BatchReport{}
	report.Add(model.Failure{Symbol: "A", Kind: model.SourceUnavailable})
	report.Add(model.Failure{Symbol: "B", Kind: model.SourceUnavailable})
	report.Add(model.Failure{Kind: model.Unauthorized})
	r.ObserveReport(report)
	r.SetCandidates(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("screen", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.failures.WithLabelValues("source_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("unauthorized")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.candidates))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rising_stock_runs_total")
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRun("x", time.Now(), nil)
		r.ObserveReport(&model.BatchReport{})
		r.SetCandidates(1)
		r.SetCachedSymbols(1)
	})
}
