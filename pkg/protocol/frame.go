package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// FrameHeaderSize is the size of the length prefix in bytes.
	FrameHeaderSize = 4

	// DefaultMaxFrameSize bounds a single payload. A larger announced length
	// means the stream has lost its frame boundary.
	DefaultMaxFrameSize = 16 << 20

	// nullFrame is the length value QDataStream writes for a null byte array.
	nullFrame uint32 = 0xFFFFFFFF
)

var (
	// ErrIncompleteFrame is returned by FrameBuffer.Next while the buffered
	// bytes do not yet hold a whole frame.
	ErrIncompleteFrame = errors.New("incomplete frame")

	// ErrFrameTooLarge is returned when a frame exceeds the maximum size.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// WriteFrame writes payload to w behind a 4-byte big-endian length prefix.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) >= uint64(nullFrame) {
		return ErrFrameTooLarge
	}

	// One write per frame keeps concurrent frame writers from interleaving
	// a header with another frame's payload.
	buf := make([]byte, FrameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[FrameHeaderSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// FrameBuffer assembles frames from arbitrarily split chunks of a stream.
// It never blocks: Write appends bytes, Next hands out whole frames.
type FrameBuffer struct {
	buf     []byte
	maxSize int
}

// NewFrameBuffer creates a FrameBuffer. maxSize <= 0 selects DefaultMaxFrameSize.
func NewFrameBuffer(maxSize int) *FrameBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &FrameBuffer{maxSize: maxSize}
}

// Write appends stream bytes to the pending buffer.
func (b *FrameBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Buffered returns the number of bytes not yet handed out as frames.
func (b *FrameBuffer) Buffered() int {
	return len(b.buf)
}

// Next returns the next complete payload. It returns ErrIncompleteFrame when
// more bytes are needed and ErrFrameTooLarge when the length prefix is
// corrupt; after ErrFrameTooLarge the buffer is unusable.
func (b *FrameBuffer) Next() ([]byte, error) {
	if len(b.buf) < FrameHeaderSize {
		return nil, ErrIncompleteFrame
	}

	size := binary.BigEndian.Uint32(b.buf)
	if size == nullFrame {
		b.consume(FrameHeaderSize)
		return []byte{}, nil
	}
	if uint64(size) > uint64(b.maxSize) {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	end := FrameHeaderSize + int(size)
	if len(b.buf) < end {
		return nil, ErrIncompleteFrame
	}

	payload := make([]byte, size)
	copy(payload, b.buf[FrameHeaderSize:end])
	b.consume(end)
	return payload, nil
}

func (b *FrameBuffer) consume(n int) {
	rest := copy(b.buf, b.buf[n:])
	b.buf = b.buf[:rest]
}

// FrameReader reads whole frames from a byte stream.
type FrameReader struct {
	r     io.Reader
	frame *FrameBuffer
	chunk []byte
	err   error
}

// NewFrameReader creates a FrameReader over r.
func NewFrameReader(r io.Reader, maxSize int) *FrameReader {
	return &FrameReader{
		r:     r,
		frame: NewFrameBuffer(maxSize),
		chunk: make([]byte, 4096),
	}
}

// ReadFrame returns the next payload. io.EOF is returned only on a clean
// frame boundary; a stream that ends mid-frame yields io.ErrUnexpectedEOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	for {
		payload, err := fr.frame.Next()
		if err == nil {
			return payload, nil
		}
		if !errors.Is(err, ErrIncompleteFrame) {
			return nil, err
		}

		// Frames that arrived together with a read error are handed out first.
		if fr.err != nil {
			if errors.Is(fr.err, io.EOF) && fr.frame.Buffered() > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, fr.err
		}

		n, err := fr.r.Read(fr.chunk)
		if n > 0 {
			fr.frame.Write(fr.chunk[:n])
		}
		fr.err = err
	}
}
