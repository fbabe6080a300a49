package ws

import (
	"errors"
	"fmt"
	"io"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/tcp-chat/pkg/protocol"
)

// ReadMessage reads the next data message from src, answering control frames
// on replies. Neither a single frame header nor the reassembled message may
// exceed maxFrameSize; oversized input fails with protocol.ErrFrameTooLarge
// before its payload is buffered. A close frame is reported as io.EOF.
func ReadMessage(src io.Reader, replies io.Writer, state ws.State, maxFrameSize int) ([]byte, error) {
	if maxFrameSize <= 0 {
		maxFrameSize = protocol.DefaultMaxFrameSize
	}
	onControl := wsutil.ControlFrameHandler(replies, state)
	rd := wsutil.Reader{
		Source:    src,
		State:     state,
		CheckUTF8: true,
		// Control frames up to 125 bytes stay legal under a tiny limit.
		MaxFrameSize:   int64(max(maxFrameSize, ws.MaxControlFramePayloadSize)),
		OnIntermediate: onControl,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, readError(err, hdr.Length)
		}
		if hdr.OpCode.IsControl() {
			if err := onControl(hdr, &rd); err != nil {
				return nil, readError(err, 0)
			}
			continue
		}
		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := rd.Discard(); err != nil {
				return nil, readError(err, 0)
			}
			continue
		}

		data, err := io.ReadAll(io.LimitReader(&rd, int64(maxFrameSize)+1))
		if err != nil {
			return nil, readError(err, int64(len(data)))
		}
		if len(data) > maxFrameSize {
			return nil, fmt.Errorf("%w: message exceeds %d bytes", protocol.ErrFrameTooLarge, maxFrameSize)
		}
		return data, nil
	}
}

func readError(err error, size int64) error {
	var closed wsutil.ClosedError
	switch {
	case errors.As(err, &closed):
		return io.EOF
	case errors.Is(err, wsutil.ErrFrameTooLarge):
		return fmt.Errorf("%w: %d bytes", protocol.ErrFrameTooLarge, size)
	default:
		return err
	}
}
