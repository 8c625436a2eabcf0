package lisper

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

// MaxMsgSize bounds one framed message body in either direction.
const MaxMsgSize = 16 << 20

var ErrMsgTooLarge = errors.New("message too large")

var msgCounter uint64

// NextID returns a process-unique request id.
func NextID() string {
	n := atomic.AddUint64(&msgCounter, 1)
	return fmt.Sprintf("r%d", n)
}

// WriteMsg writes msg as JSON prefixed by its 4-byte big-endian length.
func WriteMsg(w io.Writer, msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if len(data) > MaxMsgSize {
		return fmt.Errorf("write: %w: %d bytes (max %d)", ErrMsgTooLarge, len(data), MaxMsgSize)
	}
	length := uint32(len(data))
	if err := binary.Write(w, binary.BigEndian, length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// ReadMsg reads one length-prefixed JSON message. A clean close before the
// length prefix returns io.EOF unwrapped. A prefix over MaxMsgSize fails
// with ErrMsgTooLarge before anything is allocated; the stream is then out
// of sync and should be closed.
func ReadMsg(r io.Reader) (map[string]any, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read length: %w", err)
	}
	if length > MaxMsgSize {
		return nil, fmt.Errorf("read: %w: %d bytes (max %d)", ErrMsgTooLarge, length, MaxMsgSize)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return msg, nil
}
