// Package csvio reads points from and writes distance records to headerless
// CSV files.
//
// Input rows are "label,latitude,longitude". Output rows are
// "origin,destination,distance_km" with the distance in shortest round-trip
// decimal form.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/utkarsh5026/distmatrix/geo"
)

// Reader parses points from CSV one row at a time. It implements
// matrix.Source.
type Reader struct {
	r *csv.Reader
}

// NewReader returns a Reader over r. Blank lines are skipped.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{r: cr}
}

// Next returns the next point, or io.EOF at the end of input. A malformed
// row yields a *geo.ValidationError naming its line.
func (r *Reader) Next(ctx context.Context) (geo.Point, error) {
	if err := ctx.Err(); err != nil {
		return geo.Point{}, err
	}

	row, err := r.r.Read()
	if errors.Is(err, io.EOF) {
		return geo.Point{}, io.EOF
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return geo.Point{}, lineError(perr.Line, nil, perr.Err.Error())
		}
		return geo.Point{}, err
	}

	line, _ := r.r.FieldPos(0)
	return parseRow(line, row)
}

func parseRow(line int, row []string) (geo.Point, error) {
	if len(row) != 3 {
		return geo.Point{}, lineError(line, strings.Join(row, ","),
			fmt.Sprintf("want 3 fields (label,latitude,longitude), got %d", len(row)))
	}

	label := strings.TrimSpace(row[0])
	lat, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return geo.Point{}, lineError(line, row[1], "latitude is not a number")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return geo.Point{}, lineError(line, row[2], "longitude is not a number")
	}

	p, err := geo.NewPoint(label, lat, lon)
	if err != nil {
		var verr *geo.ValidationError
		if errors.As(err, &verr) {
			return geo.Point{}, lineError(line, verr.Value, verr.Field+": "+verr.Reason)
		}
		return geo.Point{}, err
	}
	return p, nil
}

func lineError(line int, value any, reason string) *geo.ValidationError {
	return &geo.ValidationError{Field: fmt.Sprintf("row on line %d", line), Value: value, Reason: reason}
}

// ReadAll parses every row of r. It stops at the first malformed row.
func ReadAll(ctx context.Context, r io.Reader) ([]geo.Point, error) {
	pr := NewReader(r)
	var points []geo.Point
	for {
		p, err := pr.Next(ctx)
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
}

// ReadFile parses every row of the file at path.
func ReadFile(ctx context.Context, path string) ([]geo.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadAll(ctx, f)
}
