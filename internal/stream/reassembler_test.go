package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "1.0;n1;stats,1,ipv6,1,2,3,4,5,6\n" +
	"1.1;n2;hello world\n" +
	"\n" +
	"1.2;n1;info,booted\r\n" +
	"1.3;n3;udp,12,fe80::1,8765,abc\n" +
	"tail without newline"

// feedAll splits data into size-byte chunks and reassembles it.
func feedAll(data string, size int) []string {
	var r Reassembler
	var lines []string
	for lo := 0; lo < len(data); lo += size {
		lines = append(lines, r.Feed([]byte(data[lo:min(lo+size, len(data))]))...)
	}
	return append(lines, r.Drain()...)
}

func TestReassembler_ChunkSizeInvariance(t *testing.T) {
	want := feedAll(sample, len(sample))
	require.Len(t, want, 6)
	assert.Equal(t, "", want[2])
	assert.Equal(t, "1.2;n1;info,booted", want[3], "CR must be stripped")
	assert.Equal(t, "tail without newline", want[5])

	for size := 1; size <= len(sample)+1; size++ {
		assert.Equal(t, want, feedAll(sample, size), "chunk size %d", size)
	}
}

func TestReassembler_BoundaryOnNewline(t *testing.T) {
	var r Reassembler

	assert.Equal(t, []string{"a"}, r.Feed([]byte("a\n")))
	assert.Equal(t, 0, r.Buffered())
	assert.Equal(t, []string{"b"}, r.Feed([]byte("b\n")))
	assert.Nil(t, r.Drain())
}

func TestReassembler_BoundaryMidLine(t *testing.T) {
	var r Reassembler

	assert.Equal(t, []string{"first"}, r.Feed([]byte("first\nsec")))
	assert.Equal(t, 3, r.Buffered())
	assert.Nil(t, r.Feed([]byte("ond")))
	assert.Equal(t, []string{"second"}, r.Feed([]byte("\n")))
}

func TestReassembler_NoLineIsSplitOrDuplicated(t *testing.T) {
	var b strings.Builder
	for i := range 500 {
		b.WriteString(strings.Repeat("x", i%37))
		b.WriteString("\n")
	}
	data := b.String()

	for _, size := range []int{1, 7, 64, 1000, len(data)} {
		lines := feedAll(data, size)
		require.Len(t, lines, 500, "chunk size %d", size)
		for i, l := range lines {
			assert.Len(t, l, i%37)
		}
	}
}

func TestReassembler_DrainEmpty(t *testing.T) {
	var r Reassembler
	assert.Nil(t, r.Drain())
}
