package protocol_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/omochice/tcp-chat/pkg/protocol"
)

func frame(payload string) []byte {
	var buf bytes.Buffer
	if err := protocol.WriteFrame(&buf, []byte(payload)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := protocol.WriteFrame(&buf, []byte("hello")); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	want := []byte{0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WriteFrame() wrote %v, want %v", buf.Bytes(), want)
	}
}

func TestWriteFrame_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := protocol.WriteFrame(&buf, nil); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0, 0, 0, 0}) {
		t.Errorf("WriteFrame() wrote %v, want zero length header", buf.Bytes())
	}
}

func TestFrameBuffer_SplitDelivery(t *testing.T) {
	stream := append(frame(`{"type":"login","nickname":"alice"}`), frame(`{"type":"message","text":"hi"}`)...)

	tests := []struct {
		name      string
		chunkSize int
	}{
		{"byte at a time", 1},
		{"three bytes", 3},
		{"header sized", protocol.FrameHeaderSize},
		{"whole stream", len(stream)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := protocol.NewFrameBuffer(0)
			var got []string

			for off := 0; off < len(stream); off += tt.chunkSize {
				end := min(off+tt.chunkSize, len(stream))
				fb.Write(stream[off:end])
				for {
					payload, err := fb.Next()
					if errors.Is(err, protocol.ErrIncompleteFrame) {
						break
					}
					if err != nil {
						t.Fatalf("Next() error = %v", err)
					}
					got = append(got, string(payload))
				}
			}

			want := []string{`{"type":"login","nickname":"alice"}`, `{"type":"message","text":"hi"}`}
			if len(got) != len(want) {
				t.Fatalf("got %d frames, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("frame %d = %q, want %q", i, got[i], want[i])
				}
			}
			if fb.Buffered() != 0 {
				t.Errorf("Buffered() = %d, want 0", fb.Buffered())
			}
		})
	}
}

func TestFrameBuffer_NullFrame(t *testing.T) {
	fb := protocol.NewFrameBuffer(0)
	fb.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	fb.Write(frame("x"))

	payload, err := fb.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if len(payload) != 0 {
		t.Errorf("null frame payload = %q, want empty", payload)
	}

	payload, err = fb.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if string(payload) != "x" {
		t.Errorf("payload after null frame = %q, want %q", payload, "x")
	}
}

func TestFrameBuffer_TooLarge(t *testing.T) {
	fb := protocol.NewFrameBuffer(16)
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, 17)
	fb.Write(header)

	if _, err := fb.Next(); !errors.Is(err, protocol.ErrFrameTooLarge) {
		t.Errorf("Next() error = %v, want ErrFrameTooLarge", err)
	}
}

func TestFrameBuffer_AtMaxSize(t *testing.T) {
	fb := protocol.NewFrameBuffer(4)
	fb.Write(frame("abcd"))

	payload, err := fb.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if string(payload) != "abcd" {
		t.Errorf("Next() = %q, want %q", payload, "abcd")
	}
}

func TestFrameReader(t *testing.T) {
	stream := bytes.Join([][]byte{frame("one"), frame(""), frame("three")}, nil)
	fr := protocol.NewFrameReader(iotest.OneByteReader(bytes.NewReader(stream)), 0)

	for _, want := range []string{"one", "", "three"} {
		got, err := fr.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		if string(got) != want {
			t.Errorf("ReadFrame() = %q, want %q", got, want)
		}
	}

	if _, err := fr.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadFrame() at end error = %v, want io.EOF", err)
	}
}

func TestFrameReader_DataWithEOF(t *testing.T) {
	stream := bytes.Join([][]byte{frame("a"), frame("b")}, nil)
	fr := protocol.NewFrameReader(iotest.DataErrReader(bytes.NewReader(stream)), 0)

	for _, want := range []string{"a", "b"} {
		got, err := fr.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		if string(got) != want {
			t.Errorf("ReadFrame() = %q, want %q", got, want)
		}
	}

	if _, err := fr.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadFrame() at end error = %v, want io.EOF", err)
	}
}

func TestFrameReader_TruncatedFrame(t *testing.T) {
	stream := frame("truncated payload")
	fr := protocol.NewFrameReader(bytes.NewReader(stream[:len(stream)-3]), 0)

	if _, err := fr.ReadFrame(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadFrame() error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestFrameReader_ReadError(t *testing.T) {
	boom := errors.New("boom")
	fr := protocol.NewFrameReader(iotest.ErrReader(boom), 0)

	if _, err := fr.ReadFrame(); !errors.Is(err, boom) {
		t.Errorf("ReadFrame() error = %v, want %v", err, boom)
	}
}
