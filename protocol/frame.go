// Package protocol implements the wire format shared by the server and the
// terminal client: a TCP stream of length-prefixed UTF-8 text frames, one
// command or chat line per frame, symmetric in both directions.
package protocol

import (
	"encoding/binary"
	"io"

	"chatline/errors"
)

// MaxFrameSize is the largest payload a frame can carry. The length prefix
// is an unsigned 16-bit integer, so this is a hard wire-level limit.
const MaxFrameSize = 1<<16 - 1

// WriteFrame writes one text frame: a 2-byte big-endian payload length
// followed by the UTF-8 payload bytes.
func WriteFrame(w io.Writer, text string) error {
	payload := []byte(text)
	if len(payload) > MaxFrameSize {
		return errors.ErrFrameTooLarge
	}
	var header [2]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one text frame. It blocks until a complete frame arrives
// or the stream errors out; a short read surfaces as io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) (string, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", err
	}
	payload := make([]byte, binary.BigEndian.Uint16(header[:]))
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(payload), nil
}
