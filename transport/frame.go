// Package transport implements the byte-serial framing the board glue
// uses to exchange program frames and result codes with a host: each
// frame is a 2-byte little-endian length prefix followed by that many
// bytes of payload, matching §6 of the wire-level contract the engine's
// loader and Print/PrintObj opcodes assume.
package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameLen is the largest payload the 2-byte length prefix can
// describe; WriteFrame rejects anything longer.
const MaxFrameLen = 1<<16 - 1

// ReadFrame reads one length-prefixed frame from r and returns its
// payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("transport: reading frame length: %w", err)
	}
	n := binary.LittleEndian.Uint16(lenBuf[:])
	if int(n) > MaxFrameLen {
		return nil, fmt.Errorf("transport: frame length %d exceeds max %d", n, MaxFrameLen)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("transport: reading frame payload: %w", err)
	}
	return payload, nil
}

// WriteFrame writes payload to w as one length-prefixed frame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameLen {
		return fmt.Errorf("transport: frame length %d exceeds max %d", len(payload), MaxFrameLen)
	}
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("transport: writing frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("transport: writing frame payload: %w", err)
	}
	return nil
}

// Link bundles a frame source and a buffered sink for the result/output
// byte stream the engine writes to, the pairing a board's serial port
// glue (or a desktop simulator's in-memory pipe) provides to a Machine.
type Link struct {
	R io.Reader
	W *bufio.Writer
}

// NewLink wraps r/w with buffering appropriate for frequent small writes
// (status bytes, Print/PrintObj frames).
func NewLink(r io.Reader, w io.Writer) *Link {
	return &Link{R: r, W: bufio.NewWriter(w)}
}
