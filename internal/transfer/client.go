package transfer

import (
	"fmt"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	"bitshare/internal/identity"
	"bitshare/internal/protocol"
)

// Client dials a peer and drives the send-side state machine from
// spec.md §4.6: offer -> await response -> per-file streaming ->
// complete -> await ack. It runs on the caller's (foreground) thread,
// per spec.md §5.
//
// Grounded on the teacher's internal/transfer.go SendFile, generalized
// from a single filename+size header into the full transfer_offer/
// file_header/file_complete/transfer_complete exchange.
type Client struct {
	deviceID string
	alias    string
	log      *logrus.Entry
}

// NewClient builds a Client that will identify itself as deviceID/alias
// in every transfer_offer it sends.
func NewClient(deviceID, alias string) *Client {
	return &Client{
		deviceID: deviceID,
		alias:    alias,
		log:      logrus.WithField("component", "transfer.client"),
	}
}

// Send connects to peerAddr (host:port), offers files, and — if
// accepted — streams each one in order. Any write or read error past
// the transfer_response step is fatal for the session, per spec.md §7.
func (c *Client) Send(peerAddr string, files []FileEntry, onProgress ProgressFunc) error {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}

	conn, err := net.Dial("tcp", peerAddr)
	if err != nil {
		return fmt.Errorf("transfer: dial %s: %w", peerAddr, err)
	}
	defer conn.Close()
	tuneConn(conn)

	transferID := identity.NewUUIDv4()
	log := c.log.WithFields(logrus.Fields{"peer": peerAddr, "transfer_id": transferID})

	fileInfos := make([]protocol.FileInfo, len(files))
	var totalSize int64
	for i, f := range files {
		fileInfos[i] = protocol.FileInfo{
			ID:       identity.NewUUIDv4(),
			Path:     f.RelativePath,
			Size:     f.Size,
			Modified: f.Modified.Unix(),
		}
		totalSize += f.Size
	}

	offer := protocol.NewTransferOffer(protocol.TransferOfferPayload{
		TransferID: transferID,
		DeviceID:   c.deviceID,
		Alias:      c.alias,
		Files:      fileInfos,
		TotalSize:  totalSize,
		TotalFiles: uint32(len(files)),
	})
	if err := protocol.WriteMessage(conn, offer); err != nil {
		return fmt.Errorf("transfer: write transfer_offer: %w", err)
	}

	respMsg, err := protocol.ReadMessage(conn)
	if err != nil {
		return fmt.Errorf("transfer: read transfer_response: %w", err)
	}
	if respMsg.Type != protocol.TypeTransferResponse {
		return fmt.Errorf("transfer: expected transfer_response, got %q", respMsg.Type)
	}
	if !respMsg.TransferResponse.Accepted {
		log.Info("peer rejected transfer")
		return ErrTransferRejected
	}

	// RemoteDeviceID is left unset here: the client identifies itself
	// (c.deviceID) in the transfer_offer it sends, but has no local
	// record of the peer's own device id — discovery tracks that
	// separately in peertable.Table, keyed by device id, and Send is
	// given only the peer's address.
	session := &Session{
		TransferID: transferID,
		TotalFiles: len(files),
		TotalSize:  totalSize,
	}

	for i, entry := range files {
		if err := c.sendOneFile(conn, session, i, entry, fileInfos[i], onProgress); err != nil {
			return err
		}
	}

	if err := protocol.WriteMessage(conn, protocol.NewTransferComplete()); err != nil {
		return fmt.Errorf("transfer: write transfer_complete: %w", err)
	}

	ackMsg, err := protocol.ReadMessage(conn)
	if err != nil {
		return fmt.Errorf("transfer: read ack: %w", err)
	}
	if ackMsg.Type != protocol.TypeAck {
		return fmt.Errorf("transfer: expected ack, got %q", ackMsg.Type)
	}

	log.Info("transfer complete")
	return nil
}

func (c *Client) sendOneFile(conn net.Conn, session *Session, index int, entry FileEntry, info protocol.FileInfo, onProgress ProgressFunc) error {
	file, err := os.Open(entry.AbsolutePath)
	if err != nil {
		return fmt.Errorf("transfer: open %s: %w", entry.AbsolutePath, err)
	}
	defer file.Close()

	header := protocol.NewFileHeader(protocol.FileHeaderPayload{
		ID:   info.ID,
		Path: info.Path,
		Size: info.Size,
	})
	if err := protocol.WriteMessage(conn, header); err != nil {
		return fmt.Errorf("transfer: write file_header for %s: %w", entry.RelativePath, err)
	}

	checksum, err := streamToHasher(conn, file, entry.Size)
	if err != nil {
		return fmt.Errorf("transfer: stream %s: %w", entry.RelativePath, err)
	}

	complete := protocol.NewFileComplete(protocol.FileCompletePayload{ID: info.ID, Checksum: checksum})
	if err := protocol.WriteMessage(conn, complete); err != nil {
		return fmt.Errorf("transfer: write file_complete for %s: %w", entry.RelativePath, err)
	}

	session.FilesDone++
	session.BytesDone += entry.Size

	onProgress(Progress{
		TransferID: session.TransferID,
		FileID:     info.ID,
		FilePath:   entry.RelativePath,
		FileIndex:  index,
		TotalFiles: session.TotalFiles,
		FileSize:   entry.Size,
		BytesDone:  session.BytesDone,
		TotalSize:  session.TotalSize,
	})

	return nil
}
