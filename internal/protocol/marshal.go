package protocol

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes a Message as the single-key tagged-union object
// the wire format expects: {"<type>": <payload>}.
func (m Message) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch m.Type {
	case TypeAnnounce:
		payload = m.Announce
	case TypeTransferOffer:
		payload = m.TransferOffer
	case TypeTransferResponse:
		payload = m.TransferResponse
	case TypeFileHeader:
		payload = m.FileHeader
	case TypeFileComplete:
		payload = m.FileComplete
	case TypeTransferComplete:
		payload = m.TransferComplete
	case TypeAck:
		payload = m.Ack
	default:
		return nil, fmt.Errorf("protocol: unknown message type %q", m.Type)
	}
	return json.Marshal(map[string]interface{}{string(m.Type): payload})
}

// UnmarshalJSON decodes a single-key tagged-union object into a
// Message. Any object with zero or more than one top-level key, or an
// unrecognized key, is a fatal framing error.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("protocol: malformed message: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("protocol: message must have exactly one variant key, got %d", len(raw))
	}

	var key string
	var body json.RawMessage
	for k, v := range raw {
		key, body = k, v
	}

	switch MessageType(key) {
	case TypeAnnounce:
		var p AnnouncePayload
		if err := unmarshalPayload(body, &p); err != nil {
			return err
		}
		*m = Message{Type: TypeAnnounce, Announce: &p}
	case TypeTransferOffer:
		var p TransferOfferPayload
		if err := unmarshalPayload(body, &p); err != nil {
			return err
		}
		*m = Message{Type: TypeTransferOffer, TransferOffer: &p}
	case TypeTransferResponse:
		var p TransferResponsePayload
		if err := unmarshalPayload(body, &p); err != nil {
			return err
		}
		*m = Message{Type: TypeTransferResponse, TransferResponse: &p}
	case TypeFileHeader:
		var p FileHeaderPayload
		if err := unmarshalPayload(body, &p); err != nil {
			return err
		}
		*m = Message{Type: TypeFileHeader, FileHeader: &p}
	case TypeFileComplete:
		var p FileCompletePayload
		if err := unmarshalPayload(body, &p); err != nil {
			return err
		}
		*m = Message{Type: TypeFileComplete, FileComplete: &p}
	case TypeTransferComplete:
		*m = Message{Type: TypeTransferComplete, TransferComplete: &TransferCompletePayload{}}
	case TypeAck:
		*m = Message{Type: TypeAck, Ack: &AckPayload{}}
	default:
		return fmt.Errorf("protocol: unknown message variant %q", key)
	}
	return nil
}

// unmarshalPayload treats an absent or null body as a zero-value
// payload, matching spec.md's "empty/absent payload" allowance for
// transfer_complete/ack-shaped bodies on other variants too.
func unmarshalPayload(body json.RawMessage, v interface{}) error {
	if len(body) == 0 || string(body) == "null" {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("protocol: malformed payload: %w", err)
	}
	return nil
}
