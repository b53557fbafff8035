package tickersource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"header skipped", []string{"Ticker", "aapl", " msft "}, []string{"AAPL", "MSFT"}},
		{"no header", []string{"aapl", "ticker"}, []string{"AAPL", "TICKER"}},
		{"dedupe keeps first", []string{"b", "a", "B", "", "a"}, []string{"B", "A"}},
		{"blank before header", []string{"", "ticker", "x"}, []string{"X"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	body := "ticker,name\n# comment\naapl,Apple\n005930.KR,Samsung\nAAPL,dup\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "list.csv"), []byte(body), 0o644))

	s := &FileSource{Dir: dir, Column: 1}
	got, err := s.Tickers(context.Background(), "list.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "005930.KR"}, got)

	_, err = s.Tickers(context.Background(), "missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeGoogle struct {
	files       string
	sheetStatus int
	values      string
}

func (g fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/drive"):
		fmt.Fprint(w, g.files)
	case strings.Contains(r.URL.Path, "/values/"):
		if strings.Contains(r.URL.Path, "'Missing'") {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"Unable to parse range"}}`)
			return
		}
		if g.sheetStatus != 0 {
			w.WriteHeader(g.sheetStatus)
			return
		}
		if !strings.Contains(r.URL.Path, "'Sheet1'!A:A") {
			http.Error(w, "unexpected range "+r.URL.Path, http.StatusTeapot)
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/sheets/exact-id/") {
			http.Error(w, "wrong spreadsheet "+r.URL.Path, http.StatusTeapot)
			return
		}
		fmt.Fprint(w, g.values)
	case strings.HasPrefix(r.URL.Path, "/sheets/"):
		fmt.Fprint(w, `{"sheets":[{"properties":{"title":"Sheet1"}},{"properties":{"title":"Other"}}]}`)
	default:
		http.NotFound(w, r)
	}
}

const twoFiles = `{"files":[{"id":"partial-id","name":"stock_list_old"},{"id":"exact-id","name":"stock_list"}]}`

func newSheet(t *testing.T, g fakeGoogle, worksheet string) *SheetSource {
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	s := NewSheetSource("", "", worksheet, 1, zerolog.Nop())
	s.DriveURL = srv.URL + "/drive"
	s.SheetsURL = srv.URL + "/sheets"
	s.HTTPClient = srv.Client()
	return s
}

func TestSheetSourceReadsExactTitle(t *testing.T) {
	s := newSheet(t, fakeGoogle{files: twoFiles, values: `{"values":[["Ticker"],["nvda"],[],["005930"],["NVDA"]]}`}, "Sheet1")
	got, err := s.Tickers(context.Background(), "stock_list")
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "005930"}, got)
}

func TestSheetSourceFallsBackToFirstWorksheet(t *testing.T) {
	s := newSheet(t, fakeGoogle{files: twoFiles, values: `{"values":[["aapl"]]}`}, "Missing")
	got, err := s.Tickers(context.Background(), "stock_list")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, got)
}

func TestSheetSourceErrors(t *testing.T) {
	tests := []struct {
		name    string
		g       fakeGoogle
		list    string
		wantErr error
	}{
		{"forbidden", fakeGoogle{files: twoFiles, sheetStatus: http.StatusForbidden}, "stock_list", ErrUnauthorized},
		{"server error", fakeGoogle{files: twoFiles, sheetStatus: http.StatusBadGateway}, "stock_list", ErrUnavailable},
		{"not found", fakeGoogle{files: `{"files":[]}`}, "stock_list", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSheet(t, tt.g, "Sheet1")
			got, err := s.Tickers(context.Background(), tt.list)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, got)
		})
	}
}

func TestSheetSourceWithoutCredentials(t *testing.T) {
	s := NewSheetSource(filepath.Join(t.TempDir(), "absent.json"), "", "Sheet1", 1, zerolog.Nop())
	_, err := s.Tickers(context.Background(), "stock_list")
	assert.ErrorIs(t, err, ErrUnauthorized)

	s.CredentialsJSON = "{not json"
	_, err = s.Tickers(context.Background(), "stock_list")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(1))
	assert.Equal(t, "Z", columnLetter(26))
	assert.Equal(t, "AA", columnLetter(27))
}
