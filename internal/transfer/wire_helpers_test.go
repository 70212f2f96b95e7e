package transfer

import (
	"io"

	"bitshare/internal/protocol"
)

// These helpers speak the wire protocol directly, bypassing Client,
// so tests can exercise receiver behavior against deliberately
// malformed or hostile peers (spec.md §8 scenarios 3 and 4).

func writeOffer(w io.Writer, transferID string, paths []string, sizes []int64) error {
	files := make([]protocol.FileInfo, len(paths))
	var total int64
	for i, p := range paths {
		files[i] = protocol.FileInfo{ID: "f" + p, Path: p, Size: sizes[i]}
		total += sizes[i]
	}
	return protocol.WriteMessage(w, protocol.NewTransferOffer(protocol.TransferOfferPayload{
		TransferID: transferID,
		DeviceID:   "hostile-device",
		Alias:      "hostile",
		Files:      files,
		TotalSize:  total,
		TotalFiles: uint32(len(files)),
	}))
}

func readResponse(r io.Reader) (*protocol.TransferResponsePayload, error) {
	msg, err := protocol.ReadMessage(r)
	if err != nil {
		return nil, err
	}
	return msg.TransferResponse, nil
}

func writeHeader(w io.Writer, id, path string, size int64) error {
	return protocol.WriteMessage(w, protocol.NewFileHeader(protocol.FileHeaderPayload{ID: id, Path: path, Size: size}))
}

func writeComplete(w io.Writer, id, checksum string) error {
	return protocol.WriteMessage(w, protocol.NewFileComplete(protocol.FileCompletePayload{ID: id, Checksum: checksum}))
}
