package core

// streaming.go provides streaming readers for registry extracts.
//
// Extracts arrive from several tools: UTF-8 with or without a BOM from
// Excel, and Windows-1252 from older Danish exports. These readers
// normalize all of them to UTF-8 without loading the file into memory:
//
//   - BOMSkippingReader: Removes a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - Windows1252Repairer: Decodes bytes that are not valid UTF-8 as Windows-1252
//   - CountingReader: Tracks bytes read and enforces a size limit
//
// Use WrapForStreaming to apply all transforms in the correct order.

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrFileTooLarge is returned by CountingReader once the limit is exceeded.
var ErrFileTooLarge = errors.New("file too large")

// Windows1252Repairer passes valid UTF-8 through unchanged and decodes every
// byte that does not start a valid sequence as a Windows-1252 character, so
// "ø" stored as the single byte 0xF8 becomes U+00F8 instead of garbage.
type Windows1252Repairer struct {
	reader io.Reader
	buf    []byte
	in     []byte // raw bytes not yet decoded, at most one partial rune
	out    []byte // decoded bytes not yet returned
	err    error
}

// NewWindows1252Repairer creates a repairing reader.
func NewWindows1252Repairer(r io.Reader) *Windows1252Repairer {
	return &Windows1252Repairer{
		reader: r,
		buf:    make([]byte, 32*1024),
	}
}

// Read implements io.Reader.
func (s *Windows1252Repairer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *Windows1252Repairer) fill() {
	n, err := s.reader.Read(s.buf)
	s.in = append(s.in, s.buf[:n]...)
	s.err = err
	atEOF := err != nil

	// Fast path: mostly ASCII data needs no decoding.
	if isAllASCII(s.in) {
		s.out = append(s.out[:0], s.in...)
		s.in = s.in[:0]
		return
	}

	out := s.out[:0]
	i := 0
	for i < len(s.in) {
		b := s.in[i]
		if b < utf8.RuneSelf {
			out = append(out, b)
			i++
			continue
		}
		if !atEOF && !utf8.FullRune(s.in[i:]) {
			break
		}
		r, size := utf8.DecodeRune(s.in[i:])
		if r == utf8.RuneError && size == 1 {
			out = utf8.AppendRune(out, charmap.Windows1252.DecodeByte(b))
			i++
			continue
		}
		out = append(out, s.in[i:i+size]...)
		i += size
	}
	s.out = out
	s.in = append(s.in[:0], s.in[i:]...)
}

// isAllASCII returns true if all bytes are ASCII (< 128).
func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	head    []byte // bytes read during the BOM check that belong to the data
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. On the first read, it checks for and skips the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		var bom [3]byte
		n, err := io.ReadFull(r.reader, bom[:])
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
		if !(n == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF) {
			r.head = append(r.head, bom[:n]...)
		}
	}

	if len(r.head) > 0 {
		n := copy(p, r.head)
		r.head = r.head[n:]
		return n, nil
	}
	return r.reader.Read(p)
}

// CountingReader tracks bytes read and fails with ErrFileTooLarge once more
// than Limit bytes have been read. A Limit of zero or less disables the check.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64
}

// NewCountingReader creates a counting reader with an optional size limit.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, r.Limit)
	}
	return n, err
}

// WrapForStreaming counts and limits the raw bytes, strips the BOM and
// then repairs the encoding. Counting wraps the source so the limit applies
// to the bytes on the wire rather than the decoded text.
func WrapForStreaming(r io.Reader, limit int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, limit)
	return NewWindows1252Repairer(NewBOMSkippingReader(counter)), counter
}
