package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// CSVWriter writes a slice of T as CSV rows, given a header and a function
// that renders one T into its row's string fields.
type CSVWriter[T any] struct {
	Header []string
	Row    func(T) []string
}

// NewCSVWriter creates a new CSV writer for T.
func NewCSVWriter[T any](header []string, row func(T) []string) *CSVWriter[T] {
	return &CSVWriter[T]{Header: header, Row: row}
}

// Write writes the header followed by one row per item to the writer.
func (w *CSVWriter[T]) Write(items []T, out io.Writer) error {
	cw := csv.NewWriter(out)
	defer cw.Flush()

	if err := cw.Write(w.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, item := range items {
		if err := cw.Write(w.Row(item)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	return cw.Error()
}

// WriteToFile writes the header and rows to a file.
func (w *CSVWriter[T]) WriteToFile(items []T, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return w.Write(items, file)
}
