package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"IrrigationSentinel/internal/model"
)

// CSVSource reads observations from a CSV file, or from Reader when set.
type CSVSource struct {
	Path   string
	Reader io.Reader
}

// NewCSVSource creates a file-backed CSV source.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Name() string {
	if s.Path != "" {
		return "csv:" + s.Path
	}
	return "csv"
}

func (s *CSVSource) Fetch(ctx context.Context) ([]model.Observation, error) {
	t, err := s.FetchTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.Observations, nil
}

// FetchTable reads the source keeping its extra columns.
func (s *CSVSource) FetchTable(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Reader != nil {
		return ReadCSVTable(s.Reader)
	}
	if s.Path == "" {
		return nil, ErrNoData
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open observations: %w", err)
	}
	defer f.Close()
	return ReadCSVTable(f)
}

// ReadCSV parses a header row followed by one observation per row.
// Header names are matched case-insensitively; extra columns are ignored.
// Rows keep their file order.
func ReadCSV(r io.Reader) ([]model.Observation, error) {
	t, err := ReadCSVTable(r)
	if err != nil {
		return nil, err
	}
	return t.Observations, nil
}

// Table is a parsed observation file. Columns the rule does not read are kept
// in ExtraHeader/Extra so they can be written back out unchanged.
type Table struct {
	Observations []model.Observation
	ExtraHeader  []string
	Extra        [][]string // Extra[i] belongs to Observations[i]
}

// ReadCSVTable is ReadCSV keeping the extra columns.
func ReadCSVTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MissingFieldError{Field: FieldTimestamp}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		cols[strings.ToLower(h)] = i
	}
	idx := make(map[string]int, len(RequiredFields))
	used := make(map[int]bool, len(RequiredFields))
	for _, f := range RequiredFields {
		i, ok := cols[strings.ToLower(f)]
		if !ok {
			return nil, &MissingFieldError{Field: f}
		}
		idx[f] = i
		used[i] = true
	}

	t := &Table{Observations: make([]model.Observation, 0)}
	var extraIdx []int
	for i, h := range header {
		if !used[i] {
			extraIdx = append(extraIdx, i)
			t.ExtraHeader = append(t.ExtraHeader, h)
		}
	}

	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		o, err := parseRow(row, rec, idx)
		if err != nil {
			return nil, err
		}
		t.Observations = append(t.Observations, o)
		if len(extraIdx) > 0 {
			extra := make([]string, len(extraIdx))
			for j, i := range extraIdx {
				if i < len(rec) {
					extra[j] = rec[i]
				}
			}
			t.Extra = append(t.Extra, extra)
		}
	}
	return t, nil
}

func parseRow(row int, rec []string, idx map[string]int) (model.Observation, error) {
	cell := func(field string) (string, error) {
		i := idx[field]
		if i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
			return "", &MissingFieldError{Row: row, Field: field}
		}
		return rec[i], nil
	}

	var o model.Observation
	raw, err := cell(FieldTimestamp)
	if err != nil {
		return o, err
	}
	if o.Timestamp, err = ParseTimestamp(raw); err != nil {
		return o, &InvalidFieldError{Row: row, Field: FieldTimestamp, Value: raw, Err: err}
	}

	values := []struct {
		field string
		dst   *float64
	}{
		{FieldNDVI, &o.NDVI},
		{FieldSoilMoisture, &o.SoilMoisture},
		{FieldET0, &o.ET0},
		{FieldForecastRain, &o.ForecastRain},
	}
	for _, v := range values {
		raw, err := cell(v.field)
		if err != nil {
			return o, err
		}
		f, err := parseValue(raw)
		if err != nil {
			return o, &InvalidFieldError{Row: row, Field: v.field, Value: raw, Err: err}
		}
		*v.dst = f
	}
	return o, nil
}
