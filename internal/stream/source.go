package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/roach88/tbingest/internal/ingesterr"
)

// Codec names the compression applied to an input file.
type Codec string

const (
	CodecAuto Codec = "auto" // sniff the magic bytes
	CodecZstd Codec = "zstd"
	CodecGzip Codec = "gzip"
	CodecNone Codec = "none"
)

// ValidCodecs lists the accepted codec names.
var ValidCodecs = []Codec{CodecAuto, CodecZstd, CodecGzip, CodecNone}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// Source yields decompressed chunks of at most Limit bytes.
//
// Source is not safe for concurrent use.
type Source struct {
	name  string
	file  *os.File
	r     io.Reader
	close func()
	buf   []byte
	read  int64
	eof   bool
}

// Open opens a compressed file and returns a Source over its decompressed
// contents. The caller must Close the Source.
func Open(path string, codec Codec, limit int) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ingesterr.IO("open input", path, err)
	}

	src, err := newSource(path, f, codec, limit)
	if err != nil {
		f.Close()
		return nil, err
	}
	src.file = f
	return src, nil
}

// NewSource returns a Source reading from r. The Source does not own r.
func NewSource(name string, r io.Reader, codec Codec, limit int) (*Source, error) {
	return newSource(name, r, codec, limit)
}

func newSource(name string, r io.Reader, codec Codec, limit int) (*Source, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("chunk limit must be positive, got %d", limit)
	}

	if codec == CodecAuto {
		br := bufio.NewReader(r)
		codec = sniff(br)
		r = br
	}

	src := &Source{name: name, buf: make([]byte, limit), close: func() {}}

	switch codec {
	case CodecZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, ingesterr.Decode("open zstd stream", name, err)
		}
		src.r = dec
		src.close = dec.Close
	case CodecGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, ingesterr.Decode("open gzip stream", name, err)
		}
		src.r = gz
		src.close = func() { gz.Close() }
	case CodecNone:
		src.r = r
	default:
		return nil, fmt.Errorf("unknown codec %q", codec)
	}

	return src, nil
}

// sniff picks a codec from the leading magic bytes. Short or unreadable
// prefixes fall back to plain text; the first Next call reports any error.
func sniff(br *bufio.Reader) Codec {
	head, _ := br.Peek(len(zstdMagic))
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return CodecZstd
	case bytes.HasPrefix(head, gzipMagic):
		return CodecGzip
	default:
		return CodecNone
	}
}

// Next returns the next chunk of decompressed bytes. A zero-length chunk
// with a nil error means the stream is exhausted; every later call returns
// the same. The returned slice is only valid until the next call.
//
// Any error is fatal: the stream cannot be resumed.
func (s *Source) Next() ([]byte, error) {
	if s.eof {
		return nil, nil
	}

	n, err := s.fill()
	s.read += int64(n)
	if err == nil {
		return s.buf[:n], nil
	}
	if errors.Is(err, io.EOF) {
		s.eof = true
		return s.buf[:n], nil
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return nil, ingesterr.IO("read chunk", s.name, err)
	}
	return nil, ingesterr.Decode("read chunk", s.name, err)
}

// fill reads until the buffer is full or the reader reports io.EOF.
// io.ReadFull is not used because it turns a decompressor's own
// io.ErrUnexpectedEOF (a truncated frame) into an indistinguishable short read.
func (s *Source) fill() (int, error) {
	n := 0
	for n < len(s.buf) {
		m, err := s.r.Read(s.buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// BytesRead returns the number of decompressed bytes returned so far.
func (s *Source) BytesRead() int64 {
	return s.read
}

// Close releases the decompressor and the underlying file, if owned.
func (s *Source) Close() error {
	s.close()
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
