package tickersource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var sheetScopes = []string{
	"https://www.googleapis.com/auth/spreadsheets.readonly",
	"https://www.googleapis.com/auth/drive.readonly",
}

// SheetSource reads tickers from a Google spreadsheet located by title.
type SheetSource struct {
	CredentialsFile string
	CredentialsJSON string
	Worksheet       string
	Column          int // 1-based
	DriveURL        string
	SheetsURL       string
	// HTTPClient, when set, is used as is instead of a credentialed client.
	HTTPClient *http.Client
	Log        zerolog.Logger
}

// NewSheetSource creates a sheet source using Google service account credentials.
func NewSheetSource(credFile, credJSON, worksheet string, column int, log zerolog.Logger) *SheetSource {
	return &SheetSource{
		CredentialsFile: credFile,
		CredentialsJSON: credJSON,
		Worksheet:       worksheet,
		Column:          column,
		DriveURL:        "https://www.googleapis.com/drive/v3/files",
		SheetsURL:       "https://sheets.googleapis.com/v4/spreadsheets",
		Log:             log.With().Str("component", "tickersource").Logger(),
	}
}

func (s *SheetSource) client(ctx context.Context) (*http.Client, error) {
	if s.HTTPClient != nil {
		return s.HTTPClient, nil
	}
	var data []byte
	if s.CredentialsFile != "" {
		b, err := os.ReadFile(s.CredentialsFile)
		if err == nil {
			data = b
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: read credentials: %v", ErrUnauthorized, err)
		}
	}
	if data == nil && s.CredentialsJSON != "" {
		data = []byte(s.CredentialsJSON)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: no credentials configured", ErrUnauthorized)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheetScopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return oauth2.NewClient(ctx, creds.TokenSource), nil
}

func getJSON(ctx context.Context, c *http.Client, u string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "oauth2") {
			return 0, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resp.StatusCode, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return resp.StatusCode, fmt.Errorf("google api: status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return resp.StatusCode, fmt.Errorf("google api decode: %w", err)
	}
	return resp.StatusCode, nil
}

type driveFiles struct {
	Files []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"files"`
}

// findSpreadsheet returns the id of the spreadsheet titled name, falling back
// to the first whose title contains name.
func (s *SheetSource) findSpreadsheet(ctx context.Context, c *http.Client, name string) (string, error) {
	escaped := strings.ReplaceAll(name, "'", `\'`)
	q := url.Values{}
	q.Set("q", fmt.Sprintf("mimeType='application/vnd.google-apps.spreadsheet' and trashed=false and name contains '%s'", escaped))
	q.Set("fields", "files(id,name)")
	q.Set("pageSize", "100")

	var files driveFiles
	if _, err := getJSON(ctx, c, s.DriveURL+"?"+q.Encode(), &files); err != nil {
		return "", err
	}
	for _, f := range files.Files {
		if f.Name == name {
			return f.ID, nil
		}
	}
	for _, f := range files.Files {
		if strings.Contains(f.Name, name) {
			return f.ID, nil
		}
	}
	return "", fmt.Errorf("%q: %w", name, ErrNotFound)
}

type valueRange struct {
	Values [][]string `json:"values"`
}

type spreadsheetMeta struct {
	Sheets []struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

func columnLetter(col int) string {
	if col < 1 {
		col = 1
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

func (s *SheetSource) readColumn(ctx context.Context, c *http.Client, id, worksheet string) ([]string, int, error) {
	letter := columnLetter(s.Column)
	rng := fmt.Sprintf("'%s'!%s:%s", strings.ReplaceAll(worksheet, "'", "''"), letter, letter)
	u := fmt.Sprintf("%s/%s/values/%s", s.SheetsURL, url.PathEscape(id), url.PathEscape(rng))
	var vr valueRange
	status, err := getJSON(ctx, c, u, &vr)
	if err != nil {
		return nil, status, err
	}
	values := make([]string, 0, len(vr.Values))
	for _, row := range vr.Values {
		if len(row) > 0 {
			values = append(values, row[0])
		}
	}
	return values, status, nil
}

// Tickers reads the configured column of the named spreadsheet. When the
// configured worksheet does not exist the first worksheet is used.
func (s *SheetSource) Tickers(ctx context.Context, name string) ([]string, error) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.findSpreadsheet(ctx, c, name)
	if err != nil {
		return nil, err
	}

	values, status, err := s.readColumn(ctx, c, id, s.Worksheet)
	if err != nil && status == http.StatusBadRequest {
		var meta spreadsheetMeta
		u := fmt.Sprintf("%s/%s?fields=sheets.properties.title", s.SheetsURL, url.PathEscape(id))
		if _, merr := getJSON(ctx, c, u, &meta); merr != nil {
			return nil, merr
		}
		if len(meta.Sheets) == 0 {
			return nil, fmt.Errorf("%q has no worksheets: %w", name, ErrNotFound)
		}
		first := meta.Sheets[0].Properties.Title
		s.Log.Warn().Str("worksheet", s.Worksheet).Str("fallback", first).Msg("worksheet not found, using first")
		values, _, err = s.readColumn(ctx, c, id, first)
	}
	if err != nil {
		return nil, err
	}
	out := Normalize(values)
	s.Log.Info().Str("sheet", name).Int("count", len(out)).Msg("tickers loaded")
	return out, nil
}
