package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbingest/internal/ingesterr"
)

func TestEpochNormalize(t *testing.T) {
	n := Epoch{Offset: DefaultDeviceOffset}

	tests := []struct {
		raw  string
		want string
	}{
		// 1613732400 is 2021-02-19 11:00:00 on the device clock (UTC-2).
		{"1613732400", "2021-02-19 13:00:00.000000"},
		{"1613732400.25", "2021-02-19 13:00:00.250000"},
		{"1613732400.000001", "2021-02-19 13:00:00.000001"},
		{"1613732400.1234567891", "2021-02-19 13:00:00.123456"},
		{" 1613732400.5 ", "2021-02-19 13:00:00.500000"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := n.Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEpochNormalizeZeroOffset(t *testing.T) {
	got, err := Epoch{}.Normalize("0.5")
	require.NoError(t, err)
	assert.Equal(t, "1970-01-01 00:00:00.500000", got)
}

func TestEpochNormalizeInvalid(t *testing.T) {
	for _, raw := range []string{"", "t", "abc.5", "12.3x", "-5", ".5"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Epoch{}.Normalize(raw)
			require.Error(t, err)
			assert.Equal(t, ingesterr.KindParse, ingesterr.KindOf(err))
		})
	}
}

func TestLayoutNormalize(t *testing.T) {
	plus2 := time.FixedZone("UTC+2", 2*3600)
	n := Layout{Layout: ServerLayout, Location: plus2}

	got, err := n.Normalize("2021-02-19 13:00:00.25")
	require.NoError(t, err)
	assert.Equal(t, "2021-02-19 11:00:00.250000", got)

	got, err = n.Normalize("2021-02-19 13:00:00")
	require.NoError(t, err)
	assert.Equal(t, "2021-02-19 11:00:00.000000", got)
}

func TestLayoutNormalizeInvalid(t *testing.T) {
	n := Layout{Layout: ServerLayout, Location: time.UTC}

	_, err := n.Normalize("19/02/2021 13:00")
	require.Error(t, err)
	assert.Equal(t, ingesterr.KindParse, ingesterr.KindOf(err))
}

func TestPassthrough(t *testing.T) {
	got, err := Passthrough{}.Normalize("t")
	require.NoError(t, err)
	assert.Equal(t, "t", got)
}
