package trackio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedInput is wrapped by every parse error in this package.
var ErrMalformedInput = errors.New("malformed input")

// LineError locates a parse failure.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() []error { return []error{ErrMalformedInput, e.Err} }

func newCSVReader(r io.Reader, fields int) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = fields
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return cr
}

// eachRecord calls fn with the parsed floats of every non-comment record.
func eachRecord(r io.Reader, fields int, fn func(line int, values []float64) error) error {
	cr := newCSVReader(r, fields)
	var values []float64
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return &LineError{Line: line, Err: err}
		}
		line, _ := cr.FieldPos(0)

		values = values[:0]
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return &LineError{Line: line, Err: fmt.Errorf("field %d: %w", i+1, err)}
			}
			values = append(values, v)
		}
		if err := fn(line, values); err != nil {
			return &LineError{Line: line, Err: err}
		}
	}
}
