package ratetable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Column names of the upstream datasets.
const (
	ZipColumn      = "zip"
	ZipStateColumn = "state_name"
	TaxStateColumn = "State"
	TaxRateColumn  = "Combined Rate"
	percentHundred = 100
	utf8BOM        = "\ufeff"
)

// ErrMissingColumn is returned when a dataset lacks a required header.
var ErrMissingColumn = errors.New("ratetable: missing column")

// LoadFiles reads both datasets from disk and builds Tables.
func LoadFiles(zipPath, taxPath string) (*Tables, error) {
	zf, err := os.Open(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open zip data: %w", err)
	}
	defer zf.Close()

	tf, err := os.Open(taxPath)
	if err != nil {
		return nil, fmt.Errorf("open tax rates: %w", err)
	}
	defer tf.Close()

	return Load(zf, tf)
}

// Load parses both datasets and builds Tables.
func Load(zipData, taxData io.Reader) (*Tables, error) {
	zips, err := ReadZipStates(zipData)
	if err != nil {
		return nil, err
	}
	rates, err := ReadTaxRates(taxData)
	if err != nil {
		return nil, err
	}
	return New(zips, rates), nil
}

// ReadZipStates parses a CSV with zip and state_name columns. Rows with an empty ZIP
// are skipped.
func ReadZipStates(r io.Reader) (map[string]string, error) {
	out := map[string]string{}
	err := readRows(r, []string{ZipColumn, ZipStateColumn}, func(row []string) error {
		zip := strings.TrimSpace(row[0])
		if zip == "" {
			return nil
		}
		out[zip] = strings.TrimSpace(row[1])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read zip data: %w", err)
	}
	return out, nil
}

// ReadTaxRates parses a CSV with State and Combined Rate columns. Rates are
// percentages with an optional trailing "%" and are returned as fractions.
func ReadTaxRates(r io.Reader) (map[string]float64, error) {
	out := map[string]float64{}
	err := readRows(r, []string{TaxStateColumn, TaxRateColumn}, func(row []string) error {
		state := strings.TrimSpace(row[0])
		if state == "" {
			return nil
		}
		rate, err := ParsePercent(row[1])
		if err != nil {
			return fmt.Errorf("state %q: %w", state, err)
		}
		out[state] = rate
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read tax rates: %w", err)
	}
	return out, nil
}

// ParsePercent converts "8.25%" (or "8.25") to 0.0825.
func ParsePercent(value string) (float64, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if trimmed == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", value, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative rate %q", value)
	}
	return d.Div(decimal.NewFromInt(percentHundred)).InexactFloat64(), nil
}

func readRows(r io.Reader, columns []string, fn func([]string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return err
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, utf8BOM))] = i
	}
	positions := make([]int, len(columns))
	for i, col := range columns {
		pos, ok := index[col]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
		positions[i] = pos
	}

	row := make([]string, len(columns))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		for i, pos := range positions {
			if pos < len(record) {
				row[i] = record[pos]
			} else {
				row[i] = ""
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}
