package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/utkarsh5026/distmatrix/matrix"
)

// DefaultOutputName is the file written next to the input when no output
// path is given.
const DefaultOutputName = "output.csv"

// DefaultOutputPath returns output.csv in the directory of inputPath.
func DefaultOutputPath(inputPath string) string {
	return filepath.Join(filepath.Dir(inputPath), DefaultOutputName)
}

// Writer formats records as CSV rows. It implements matrix.Sink but is not
// safe for concurrent use; the stream pipeline calls it from one goroutine.
type Writer struct {
	w *csv.Writer
	n int
}

// NewWriter returns a Writer over w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// Write appends one row.
func (w *Writer) Write(_ context.Context, r matrix.Record) error {
	if err := w.w.Write(formatRecord(r)); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count returns the number of rows written.
func (w *Writer) Count() int { return w.n }

// Flush writes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// WriteAll writes records and flushes.
func WriteAll(w io.Writer, records []matrix.Record) error {
	cw := NewWriter(w)
	for _, r := range records {
		if err := cw.Write(context.Background(), r); err != nil {
			return err
		}
	}
	return cw.Flush()
}

func formatRecord(r matrix.Record) []string {
	return []string{r.Origin, r.Destination, strconv.FormatFloat(r.Distance, 'f', -1, 64)}
}

// FileWriter writes CSV to a temporary file that replaces the target only on
// Commit, so a failed run never leaves a truncated output behind.
type FileWriter struct {
	*Writer
	f      *os.File
	target string
	done   bool
}

// CreateFile prepares a FileWriter for path.
func CreateFile(path string) (*FileWriter, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return &FileWriter{Writer: NewWriter(f), f: f, target: path}, nil
}

// Commit flushes and atomically moves the file into place.
func (fw *FileWriter) Commit() error {
	if fw.done {
		return nil
	}
	fw.done = true

	if err := fw.Flush(); err != nil {
		fw.cleanup()
		return fmt.Errorf("write output: %w", err)
	}
	if err := fw.f.Close(); err != nil {
		_ = os.Remove(fw.f.Name())
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(fw.f.Name(), fw.target); err != nil {
		_ = os.Remove(fw.f.Name())
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}

// Abort discards everything written. It is a no-op after Commit.
func (fw *FileWriter) Abort() {
	if fw.done {
		return
	}
	fw.done = true
	fw.cleanup()
}

func (fw *FileWriter) cleanup() {
	_ = fw.f.Close()
	_ = os.Remove(fw.f.Name())
}
