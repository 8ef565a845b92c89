// Package timestamp converts the raw timestamps of both input streams into a
// single canonical textual form.
//
// Canonical timestamps are UTC and formatted with Canonical, so that rows
// from the serial and server streams sort and compare as plain text.
package timestamp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/tbingest/internal/ingesterr"
)

// Canonical is the layout of every stored timestamp.
const Canonical = "2006-01-02 15:04:05.000000"

// ServerLayout is the default layout of server stream timestamps. Fractional
// seconds are accepted after the seconds field without being named.
const ServerLayout = "2006-01-02 15:04:05"

// DefaultDeviceOffset is the offset from UTC of the testbed nodes' clocks.
const DefaultDeviceOffset = -2 * time.Hour

// Normalizer turns a raw timestamp into its canonical form.
type Normalizer interface {
	Normalize(raw string) (string, error)
}

// Epoch reads decimal epoch seconds ("1613732400.250113") printed by a
// device whose wall clock runs at Offset from UTC.
type Epoch struct {
	Offset time.Duration
}

// Normalize implements Normalizer.
func (e Epoch) Normalize(raw string) (string, error) {
	t, err := parseEpoch(raw)
	if err != nil {
		return "", ingesterr.Parse("normalize timestamp", strconv.Quote(raw), err)
	}
	return t.Add(-e.Offset).Format(Canonical), nil
}

func parseEpoch(raw string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(strings.TrimSpace(raw), ".")
	if secPart == "" {
		return time.Time{}, errors.New("missing seconds")
	}

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if sec < 0 {
		return time.Time{}, fmt.Errorf("negative epoch %d", sec)
	}

	var nsec int64
	if fracPart != "" {
		for _, c := range fracPart {
			if c < '0' || c > '9' {
				return time.Time{}, fmt.Errorf("invalid fraction %q", fracPart)
			}
		}
		// Nanosecond precision; extra digits are truncated.
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		nsec, _ = strconv.ParseInt(fracPart, 10, 64)
	}

	return time.Unix(sec, nsec).UTC(), nil
}

// Layout parses raw with a fixed layout in Location (time.Local when nil).
type Layout struct {
	Layout   string
	Location *time.Location
}

// Normalize implements Normalizer.
func (l Layout) Normalize(raw string) (string, error) {
	loc := l.Location
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(l.Layout, raw, loc)
	if err != nil {
		return "", ingesterr.Parse("normalize timestamp", strconv.Quote(raw), err)
	}
	return t.UTC().Format(Canonical), nil
}

// Passthrough stores raw timestamps unchanged.
type Passthrough struct{}

// Normalize implements Normalizer.
func (Passthrough) Normalize(raw string) (string, error) {
	return raw, nil
}
