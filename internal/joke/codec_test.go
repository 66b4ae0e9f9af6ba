package joke

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMessage_Framing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, "Bye!"))
	assert.Equal(t, []byte{0x00, 0x04, 'B', 'y', 'e', '!'}, buf.Bytes())
}

func TestWriteMessage_LengthCountsBytesNotRunes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, "héllo"))
	assert.Equal(t, []byte{0x00, 0x06}, buf.Bytes()[:2])

	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, "héllo", got)
}

func TestWriteMessage_EmptyAndMaximum(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, ""))
	assert.Equal(t, []byte{0, 0}, buf.Bytes())

	buf.Reset()
	longest := strings.Repeat("a", 65535)
	require.NoError(t, WriteMessage(&buf, longest))
	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, longest, got)
}

func TestWriteMessage_TooLong(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMessage(&buf, strings.Repeat("a", 65536))
	assert.ErrorIs(t, err, ErrMessageTooLong)
	assert.Zero(t, buf.Len(), "nothing should be written")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteMessage_WrapsWriterError(t *testing.T) {
	err := WriteMessage(failingWriter{}, "Y")
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestReadMessage_Sequence(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, "Y"))
	require.NoError(t, WriteMessage(&buf, "n"))

	first, err := ReadMessage(&buf)
	require.NoError(t, err)
	second, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Y", first)
	assert.Equal(t, "n", second)

	_, err = ReadMessage(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestReadMessage_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"partial header", []byte{0x00}},
		{"partial body", []byte{0x00, 0x05, 'h', 'i'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMessage(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
		})
	}
}

func TestReadMessage_InvalidUTF8(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader([]byte{0x00, 0x02, 0xff, 0xfe}))
	assert.ErrorIs(t, err, ErrDecode)
}
