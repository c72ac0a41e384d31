// Package export writes analyzed price series as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"stockanalyzer/internal/indicators"
)

// DateLayout is the layout of the Date column.
const DateLayout = "2006-01-02"

// Options controls the CSV layout.
type Options struct {
	// Ascending writes the oldest bar first. By default the most recent bar comes first.
	Ascending bool
}

// DefaultFileName returns the conventional export name for symbol.
func DefaultFileName(symbol string) string {
	return fmt.Sprintf("%s_historical_data.csv", symbol)
}

// Header returns the column header for res.
func Header(res *indicators.Result) []string {
	header := []string{"Date", "Open", "High", "Low", "Close", "Volume"}
	return append(header, res.ColumnNames()...)
}

// WriteCSV writes one row per bar. Prices and indicator values are rounded to
// two decimals, volume to a whole number; undefined indicator cells are empty.
func WriteCSV(w io.Writer, res *indicators.Result, opts Options) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header(res)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	n := len(res.Bars)
	for k := 0; k < n; k++ {
		i := n - 1 - k
		if opts.Ascending {
			i = k
		}
		bar := res.Bars[i]
		row := make([]string, 0, 6+len(res.Columns))
		row = append(row,
			bar.Time.Format(DateLayout),
			price(bar.Open),
			price(bar.High),
			price(bar.Low),
			price(bar.Close),
			strconv.FormatFloat(math.Round(bar.Volume), 'f', 0, 64),
		)
		for _, col := range res.Columns {
			v := col.Values.At(i)
			if v.Valid {
				row = append(row, price(v.Float64))
			} else {
				row = append(row, "")
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", k, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes the CSV to path, creating parent directories as needed.
func WriteFile(path string, res *indicators.Result, opts Options) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := WriteCSV(file, res, opts); err != nil {
		return err
	}
	return file.Close()
}

func price(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
