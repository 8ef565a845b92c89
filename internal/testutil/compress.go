package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// Zstd returns data compressed as a single zstd frame.
func Zstd(t testing.TB, data []byte) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// Gzip returns data compressed as a gzip member.
func Gzip(t testing.TB, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// WriteZstd writes data zstd-compressed to name in a fresh temp dir and
// returns the path.
func WriteZstd(t testing.TB, name string, data []byte) string {
	t.Helper()
	return WriteFile(t, name, Zstd(t, data))
}

// WriteGzip writes data gzip-compressed to name in a fresh temp dir and
// returns the path.
func WriteGzip(t testing.TB, name string, data []byte) string {
	t.Helper()
	return WriteFile(t, name, Gzip(t, data))
}

// WriteFile writes data to name in a fresh temp dir and returns the path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
