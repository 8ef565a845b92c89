package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/tbingest/internal/ingesterr"
)

// ErrUnknownTag is returned by Route for a tag with no data table.
// It is informational: the line is skipped, the batch is unaffected.
var ErrUnknownTag = errors.New("unknown record tag")

// Record is one typed row bound for a single table.
type Record struct {
	Shape  *Shape
	Values []any
}

// Table returns the destination table.
func (r Record) Table() string {
	return r.Shape.Table
}

// Columns returns the ordered column list matching Values.
func (r Record) Columns() []string {
	return r.Shape.Columns()
}

// Build makes a Record from envelope values and payload fields.
//
// fields must hold at least one entry per required Shape field; optional
// fields that are missing are stored as NULL and extra trailing fields are
// ignored. Any conversion failure is a KindParse error.
func (s *Shape) Build(envelope []string, fields []string) (Record, error) {
	if len(envelope) != len(s.Envelope) {
		return Record{}, fmt.Errorf("%s: expected %d envelope values, got %d", s.Table, len(s.Envelope), len(envelope))
	}
	if required := s.Required(); len(fields) < required {
		return Record{}, ingesterr.Parse("parse "+s.Table,
			fmt.Sprintf("expected %d fields, got %d", required, len(fields)), nil)
	}

	values := make([]any, 0, len(envelope)+len(s.Fields))
	for _, v := range envelope {
		values = append(values, v)
	}

	for i, f := range s.Fields {
		if i >= len(fields) {
			values = append(values, nil)
			continue
		}
		raw := fields[i]
		if f.Kind == Text {
			values = append(values, raw)
			continue
		}

		// Devices group digits with spaces ("1 024").
		n, err := strconv.ParseInt(strings.Join(strings.Fields(raw), ""), 10, 64)
		if err != nil {
			return Record{}, ingesterr.Parse("parse "+s.Table,
				fmt.Sprintf("field %q: %q is not an integer", f.Name, raw), err)
		}
		values = append(values, n)
	}

	return Record{Shape: s, Values: values}, nil
}
