package tickersource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSource reads tickers from one column of a local CSV or plain list file.
// The name passed to Tickers is resolved relative to Dir when not absolute.
type FileSource struct {
	Dir    string
	Column int // 1-based
}

func (s *FileSource) Tickers(_ context.Context, name string) ([]string, error) {
	path := name
	if !filepath.IsAbs(path) && s.Dir != "" {
		path = filepath.Join(s.Dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer f.Close()

	col := s.Column
	if col < 1 {
		col = 1
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'

	var values []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(rec) >= col {
			values = append(values, rec[col-1])
		}
	}
	return Normalize(values), nil
}
