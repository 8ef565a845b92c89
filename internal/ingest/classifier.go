package ingest

import (
	"log/slog"
	"strings"

	"github.com/roach88/tbingest/internal/ingesterr"
	"github.com/roach88/tbingest/internal/record"
)

// Serial line delimiters: "timestamp;source;tag,field,field,...".
const (
	envelopeSep = ";"
	fieldSep    = ","
)

// action says what to do with a classified line.
type action int

const (
	actSkip    action = iota // nothing to store (blank line, server header row)
	actInvalid               // malformed line, err is set
	actHeader                // header declaration, consumed
	actOutput                // free-form output
	actInfo                  // info message, always stored
	actData                  // data row for the router
	actServer                // server delivery record
)

type headerKey struct {
	source string
	tag    string
}

// HeaderState records the (source, tag) pairs whose header line has been
// seen. It only grows.
type HeaderState struct {
	seen map[headerKey]struct{}
}

// NewHeaderState returns an empty state.
func NewHeaderState() *HeaderState {
	return &HeaderState{seen: make(map[headerKey]struct{})}
}

// Seen reports whether the header of tag from source was seen.
func (h *HeaderState) Seen(source, tag string) bool {
	_, ok := h.seen[headerKey{source, tag}]
	return ok
}

// Mark records the header of tag from source. It reports whether the pair
// was new.
func (h *HeaderState) Mark(source, tag string) bool {
	k := headerKey{source, tag}
	if _, ok := h.seen[k]; ok {
		return false
	}
	h.seen[k] = struct{}{}
	return true
}

// Len returns the number of recorded pairs.
func (h *HeaderState) Len() int {
	return len(h.seen)
}

// Classifier decides, line by line, whether a serial line is output, a
// header declaration, or a data row.
//
// Devices print the header of each record type once per session before any
// data of that type, so the first line of a (source, tag) pair is its header
// and every later one is data. info lines are the exception: they are
// always stored.
//
// A Classifier is not safe for concurrent use; lines must be classified in
// input order.
type Classifier struct {
	state    *HeaderState
	columns  map[string][]string
	registry *record.Registry
	log      *slog.Logger
}

// NewClassifier returns a classifier with empty header state.
func NewClassifier(registry *record.Registry, log *slog.Logger) *Classifier {
	return &Classifier{
		state: NewHeaderState(),
		columns: map[string][]string{
			// Printed before the serial aggregator attaches; never observed.
			record.TagInfo:     {"Message"},
			"rpl_stats_parent": {"Instance ID", "IPv6 Adress", "Rank"},
		},
		registry: registry,
		log:      log,
	}
}

// State returns the header state.
func (c *Classifier) State() *HeaderState {
	return c.state
}

// Columns returns the column names declared for tag by the first header
// seen from any source.
func (c *Classifier) Columns(tag string) ([]string, bool) {
	cols, ok := c.columns[tag]
	return cols, ok
}

// classify fills e.action and the envelope fields of e from e.line.
func (c *Classifier) classify(e *entry) {
	if e.line == "" {
		e.action = actSkip
		return
	}

	parts := strings.SplitN(e.line, envelopeSep, 3)
	if len(parts) < 3 {
		e.action = actInvalid
		e.err = ingesterr.Parse("split envelope", "expected timestamp;source;payload", nil)
		return
	}
	e.ts, e.source, e.payload = parts[0], parts[1], parts[2]
	e.fields = strings.Split(e.payload, fieldSep)

	if len(e.fields) == 1 {
		e.action = actOutput
		return
	}

	tag := e.fields[0]
	switch {
	case tag == record.TagInfo:
		c.state.Mark(e.source, tag)
		e.action = actInfo
	case c.state.Seen(e.source, tag):
		e.action = actData
	default:
		c.state.Mark(e.source, tag)
		c.declare(tag, e.fields[1:])
		e.action = actHeader
	}
}

// declare keeps the first column list declared for tag and warns when it
// disagrees with the registered shape.
func (c *Classifier) declare(tag string, cols []string) {
	if _, ok := c.columns[tag]; ok {
		return
	}
	c.columns[tag] = append([]string(nil), cols...)

	if shape, ok := c.registry.Lookup(tag); ok && c.registry.IsDataTag(tag) &&
		(len(cols) < shape.Required() || len(cols) > len(shape.Fields)) {
		c.log.Warn("header column count differs from table",
			"tag", tag, "declared", len(cols), "table", len(shape.Fields))
	}
}
