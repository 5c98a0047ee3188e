// Package procpool runs distance computations in child processes.
//
// A child is the current executable re-launched with EnvWorker=1 in its
// environment. Binaries that may act as a child call IsWorker early in main
// (before flag parsing) and hand control to Main. Parent and child exchange
// newline-delimited JSON: one Request in, one Response out, strictly in turn.
package procpool

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/utkarsh5026/distmatrix/geo"
)

// EnvWorker marks a process as a child worker.
const EnvWorker = "DISTMATRIX_PROCESS_WORKER"

// Request asks a child for the distance between A and B, each given as
// [latitude, longitude].
type Request struct {
	ID       int64      `json:"id"`
	Formula  string     `json:"formula"`
	RadiusKm float64    `json:"radius_km"`
	A        [2]float64 `json:"a"`
	B        [2]float64 `json:"b"`
}

// Response carries either Distance or a non-empty Error for request ID.
type Response struct {
	ID       int64   `json:"id"`
	Distance float64 `json:"distance"`
	Error    string  `json:"error,omitempty"`
}

// IsWorker reports whether this process was launched as a child worker.
func IsWorker() bool {
	return os.Getenv(EnvWorker) == "1"
}

// Main serves requests on stdin/stdout and returns the process exit code.
func Main() int {
	if err := Serve(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "procpool worker:", err)
		return 1
	}
	return 0
}

// Serve answers requests from r on w until r reaches EOF. A request that
// cannot be computed gets a Response with Error set; only I/O and decoding
// failures end the loop.
func Serve(r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode request: %w", err)
		}

		if err := enc.Encode(handle(req)); err != nil {
			return fmt.Errorf("encode response %d: %w", req.ID, err)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("flush response %d: %w", req.ID, err)
		}
	}
}

func handle(req Request) Response {
	resp := Response{ID: req.ID}

	formula, err := geo.ParseFormula(req.Formula)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	a, err := geo.NewCoordinate(req.A[0], req.A[1])
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	b, err := geo.NewCoordinate(req.B[0], req.B[1])
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	d, err := geo.Calculator{Formula: formula, RadiusKm: req.RadiusKm}.Distance(a, b)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	// JSON cannot carry NaN or Inf; report them as a failed pair instead.
	if math.IsNaN(d) || math.IsInf(d, 0) {
		resp.Error = fmt.Sprintf("invalid distance %v", d)
		return resp
	}
	resp.Distance = d
	return resp
}
