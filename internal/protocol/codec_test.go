package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, msg))
	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	return got
}

func TestRoundTripEveryVariant(t *testing.T) {
	cases := []Message{
		NewAnnounce(AnnouncePayload{Alias: "laptop", DeviceID: "d1", Version: 1, Port: 53317}),
		NewTransferOffer(TransferOfferPayload{
			TransferID: "t1",
			DeviceID:   "d1",
			Alias:      "laptop",
			Files:      []FileInfo{{ID: "f1", Path: "hello.txt", Size: 11, Modified: 1700000000}},
			TotalSize:  11,
			TotalFiles: 1,
		}),
		NewTransferResponse(TransferResponsePayload{TransferID: "t1", Accepted: true}),
		NewFileHeader(FileHeaderPayload{ID: "f1", Path: "hello.txt", Size: 11}),
		NewFileComplete(FileCompletePayload{ID: "f1", Checksum: "deadbeef"}),
		NewTransferComplete(),
		NewAck(),
	}

	for _, want := range cases {
		got := roundTrip(t, want)
		assert.Equal(t, want, got)
	}
}

func TestFramingLengthPrefixMatchesBodyLength(t *testing.T) {
	var buf bytes.Buffer
	msg := NewAck()
	require.NoError(t, WriteMessage(&buf, msg))

	all := buf.Bytes()
	require.GreaterOrEqual(t, len(all), 4)

	length := binary.BigEndian.Uint32(all[:4])
	body := all[4:]
	assert.Equal(t, int(length), len(body))

	var roundTripped map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &roundTripped))
}

func TestReadMessageRejectsOversizeLengthWithoutReadingBody(t *testing.T) {
	var buf bytes.Buffer
	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], MaxMessageSize+1)
	buf.Write(lengthPrefix[:])
	// No body bytes written at all — ReadMessage must fail before
	// trying to read them.

	_, err := ReadMessage(&buf)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestWriteMessageRejectsOversizeBody(t *testing.T) {
	huge := strings.Repeat("a", MaxMessageSize+1)
	msg := NewTransferResponse(TransferResponsePayload{TransferID: huge, Accepted: true})

	var buf bytes.Buffer
	err := WriteMessage(&buf, msg)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
	assert.Zero(t, buf.Len())
}

func TestReadMessageRejectsUnknownVariant(t *testing.T) {
	var buf bytes.Buffer
	body := []byte(`{"bogus_variant":{}}`)
	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], uint32(len(body)))
	buf.Write(lengthPrefix[:])
	buf.Write(body)

	_, err := ReadMessage(&buf)
	assert.Error(t, err)
}

func TestReadMessageRejectsShortRead(t *testing.T) {
	var buf bytes.Buffer
	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], 10)
	buf.Write(lengthPrefix[:])
	buf.WriteString("short")

	_, err := ReadMessage(&buf)
	assert.Error(t, err)
}
