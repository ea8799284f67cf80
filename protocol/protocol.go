// Package protocol implements the texcalc frame protocol.
//
// A frame is a fixed-width ASCII header holding the decimal payload length,
// left-justified and padded with spaces, followed by exactly that many payload
// bytes:
//
//	0            W                  W+N
//	┌────────────┬───────────────────┐
//	│ "12  "     │ payload (N bytes) │
//	└────────────┴───────────────────┘
//
// Requests travel in fixed-size blocks. The receiver accumulates BlockSize
// bytes before it looks at the header at all, so a sender must pad every
// request frame out to the full block (see EncodeBlock). Responses are sent
// unpadded and are read with ReadFrame.
package protocol

import (
	"bytes"
	"io"
	"strconv"

	"texcalc/fault"
)

const (
	HeaderWidth = 4    // Bytes of ASCII length header
	BlockSize   = 1024 // Bytes accumulated per request
)

// Framer encodes and decodes frames for a given header width and block size.
// The zero value is not usable; see Default.
type Framer struct {
	HeaderWidth int
	BlockSize   int
}

// Default returns a Framer using the reference header width and block size.
func Default() Framer {
	return Framer{HeaderWidth: HeaderWidth, BlockSize: BlockSize}
}

// MaxPayload returns the largest payload whose length fits the header.
func (f Framer) MaxPayload() int {
	n := 1
	for i := 0; i < f.HeaderWidth; i++ {
		n *= 10
	}
	return n - 1
}

// Encode returns header || payload. It fails with a FrameTooLarge error if the
// payload length cannot be written in HeaderWidth digits.
func (f Framer) Encode(payload []byte) ([]byte, error) {
	size := strconv.Itoa(len(payload))
	if len(size) > f.HeaderWidth {
		return nil, fault.Errorf(fault.FrameTooLarge, "encode",
			"payload of %d bytes does not fit a %d-byte header", len(payload), f.HeaderWidth)
	}
	buf := make([]byte, 0, f.HeaderWidth+len(payload))
	buf = append(buf, size...)
	buf = append(buf, bytes.Repeat([]byte{' '}, f.HeaderWidth-len(size))...)
	return append(buf, payload...), nil
}

// EncodeBlock encodes payload and pads the frame with spaces to exactly
// BlockSize bytes, as a block-reading receiver requires.
func (f Framer) EncodeBlock(payload []byte) ([]byte, error) {
	frame, err := f.Encode(payload)
	if err != nil {
		return nil, err
	}
	if len(frame) > f.BlockSize {
		return nil, fault.Errorf(fault.FrameTooLarge, "encode",
			"frame of %d bytes exceeds block size %d", len(frame), f.BlockSize)
	}
	return append(frame, bytes.Repeat([]byte{' '}, f.BlockSize-len(frame))...), nil
}

// ReadBlock reads one request block from r and returns its payload.
//
// Reads of at most BlockSize bytes are issued until BlockSize bytes have been
// accumulated; only then is the header parsed. Bytes past the declared payload
// are discarded. A zero-length read or EOF before the block is complete is
// reported as ConnectionClosed.
func (f Framer) ReadBlock(r io.Reader) ([]byte, error) {
	buf := make([]byte, 0, f.BlockSize)
	chunk := make([]byte, f.BlockSize)
	for remaining := f.BlockSize; remaining > 0; {
		n, err := r.Read(chunk[:remaining])
		buf = append(buf, chunk[:n]...)
		remaining -= n
		if remaining == 0 {
			break
		}
		if err != nil {
			return nil, fault.New(fault.ConnectionClosed, "recv", err)
		}
		if n == 0 {
			return nil, fault.Errorf(fault.ConnectionClosed, "recv", "zero-length read after %d bytes", len(buf))
		}
	}
	return f.payload(buf[:f.HeaderWidth], buf[f.HeaderWidth:])
}

// ReadFrame reads exactly one header and exactly the declared payload from r.
// Unlike ReadBlock it does not wait for padding, so it is used for responses.
func (f Framer) ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, f.HeaderWidth)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fault.New(fault.ConnectionClosed, "recv", err)
	}
	n, err := f.parseHeader(header)
	if err != nil {
		return nil, err
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fault.New(fault.ConnectionClosed, "recv", err)
	}
	return body, nil
}

func (f Framer) payload(header, rest []byte) ([]byte, error) {
	n, err := f.parseHeader(header)
	if err != nil {
		return nil, err
	}
	if n > len(rest) {
		return nil, fault.Errorf(fault.MalformedFrame, "recv",
			"header declares %d bytes but the block holds %d", n, len(rest))
	}
	return rest[:n:n], nil
}

func (f Framer) parseHeader(header []byte) (int, error) {
	n, err := strconv.Atoi(string(bytes.TrimSpace(header)))
	if err != nil || n < 0 {
		return 0, fault.Errorf(fault.MalformedFrame, "recv", "invalid length header %q", header)
	}
	return n, nil
}
