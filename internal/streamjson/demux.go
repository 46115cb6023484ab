// Package streamjson reconstructs discrete JSON values from a byte stream
// whose chunk boundaries do not align with value boundaries.
//
// The gateway's response body is a concatenation of JSON objects with no
// framing between them; one read may end mid-value or carry several values.
// The Decoder re-frames that stream incrementally so callers can act on each
// value as soon as its closing brace arrives, without buffering the whole
// response.
package streamjson

import "io"

// Decoder splits an io.Reader into complete top-level JSON objects.
//
// Framing is a brace-depth scan that is aware of string literals and escape
// sequences, so a literal '{' or '}' inside a quoted string does not
// desynchronize the counter. It does not validate JSON grammar beyond
// balance: a malformed interior still comes out as one raw slice, and the
// caller decides whether it parses. A Decoder is single-use; it cannot be
// restarted mid-stream.
type Decoder struct {
	r       io.Reader
	buf     []byte
	readBuf []byte

	pos      int // scan position in buf
	start    int // offset of the current candidate value
	depth    int
	inString bool
	escaped  bool

	err error
}

// NewDecoder wraps r. The reader may deliver bytes in chunks of any size.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, readBuf: make([]byte, 4096)}
}

// Next returns the next complete JSON value as a raw byte slice. It blocks
// on the underlying reader as needed and returns io.EOF once the stream ends
// with no further complete value; a trailing partial value is dropped.
func (d *Decoder) Next() ([]byte, error) {
	for {
		for d.pos < len(d.buf) {
			c := d.buf[d.pos]
			switch {
			case d.escaped:
				d.escaped = false
			case d.inString:
				if c == '\\' {
					d.escaped = true
				} else if c == '"' {
					d.inString = false
				}
			case c == '"' && d.depth > 0:
				d.inString = true
			case c == '{':
				if d.depth == 0 {
					d.start = d.pos
				}
				d.depth++
			case c == '}':
				if d.depth > 0 {
					d.depth--
					if d.depth == 0 {
						value := make([]byte, d.pos+1-d.start)
						copy(value, d.buf[d.start:d.pos+1])
						d.pos++
						d.discardConsumed()
						return value, nil
					}
				}
			}
			d.pos++
		}

		if d.err != nil {
			return nil, d.err
		}
		d.fill()
	}
}

// discardConsumed drops everything before the scan position. Only called at
// depth zero, so no candidate value spans the dropped prefix.
func (d *Decoder) discardConsumed() {
	d.buf = d.buf[:copy(d.buf, d.buf[d.pos:])]
	d.pos = 0
	d.start = 0
}

func (d *Decoder) fill() {
	n, err := d.r.Read(d.readBuf)
	if n > 0 {
		d.buf = append(d.buf, d.readBuf[:n]...)
	}
	if err != nil {
		// Delivered after the remaining buffered bytes are scanned.
		d.err = err
	}
}
