package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize caps the framed JSON body. File payloads are
// streamed outside the envelope (see transfer.Server/Client), so this
// cap only needs to hold metadata — announce, offers, headers,
// checksums — and exists to stop a hostile peer from forcing
// unbounded allocation during framing.
const MaxMessageSize = 1 << 20 // 1 MiB

// ErrMessageTooLarge is returned by WriteMessage and ReadMessage when
// a message body would exceed, or claims to exceed, MaxMessageSize.
var ErrMessageTooLarge = errors.New("protocol: message too large")

// WriteMessage serializes msg to JSON, writes its length as 4
// big-endian bytes, then the JSON body. The caller is responsible for
// flushing w before awaiting a response, if w is buffered.
func WriteMessage(w io.Writer, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("protocol: encode message: %w", err)
	}
	if len(body) > MaxMessageSize {
		return ErrMessageTooLarge
	}

	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], uint32(len(body)))

	if _, err := w.Write(lengthPrefix[:]); err != nil {
		return fmt.Errorf("protocol: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("protocol: write message body: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed JSON message from r. A short
// read on either the prefix or the body, a length prefix exceeding
// MaxMessageSize, a JSON parse error, or an unknown variant are all
// fatal framing errors for the connection.
func ReadMessage(r io.Reader) (Message, error) {
	var lengthPrefix [4]byte
	if _, err := io.ReadFull(r, lengthPrefix[:]); err != nil {
		return Message{}, fmt.Errorf("protocol: read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(lengthPrefix[:])
	if length > MaxMessageSize {
		return Message{}, ErrMessageTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("protocol: read message body: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("protocol: decode message: %w", err)
	}
	return msg, nil
}
