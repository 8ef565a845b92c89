package ingesterr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := Parse("parse stats", "field \"rx packets\" is not an integer", errors.New("bad digit"))
	assert.Equal(t, `PARSE_ERROR: parse stats: field "rx packets" is not an integer: bad digit`, err.Error())

	bare := &Error{Kind: KindPersistence, Message: "0 rows affected"}
	assert.Equal(t, "PERSISTENCE_ERROR: 0 rows affected", bare.Error())
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("serial: %w", Decode("read chunk", "corrupt frame", io.ErrUnexpectedEOF))

	assert.Equal(t, KindDecode, KindOf(err))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err   error
		fatal bool
	}{
		{IO("open", "missing", nil), true},
		{Decode("read", "corrupt", nil), true},
		{Parse("parse", "bad", nil), false},
		{Persistence("insert", "rejected", nil), false},
		{errors.New("other"), false},
		{nil, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.fatal, IsFatal(tt.err), "%v", tt.err)
	}
}
