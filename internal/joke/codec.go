package joke

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

const headerLen = 2

// WriteMessage frames text as a big-endian uint16 length followed by its UTF-8
// bytes and writes the frame with a single Write call.
func WriteMessage(w io.Writer, text string) error {
	if len(text) > math.MaxUint16 {
		return ErrMessageTooLong
	}
	buf := make([]byte, headerLen+len(text))
	binary.BigEndian.PutUint16(buf, uint16(len(text)))
	copy(buf[headerLen:], text)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ReadMessage blocks until a whole frame has arrived. io.EOF is returned
// unwrapped when the peer closed between frames.
func ReadMessage(r io.Reader) (string, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return "", io.EOF
		}
		return "", fmt.Errorf("read header: %w", err)
	}

	n := binary.BigEndian.Uint16(hdr[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", fmt.Errorf("read body: %w", err)
	}
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w: invalid utf-8", ErrDecode)
	}
	return string(body), nil
}
