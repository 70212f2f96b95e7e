package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// streamToHasher copies exactly size bytes from src to dst while
// feeding the same bytes into a running SHA-256, in streamChunkSize
// pieces. A premature EOF — src closing before size bytes are seen —
// is a fatal transport error for the caller to handle.
//
// Grounded on the teacher's chunked_transfer.go calculateChunkChecksum,
// generalized from "hash one chunk at a fixed file offset" into "hash
// while streaming an arbitrary number of bytes from a live connection."
func streamToHasher(dst io.Writer, src io.Reader, size int64) (string, error) {
	hasher := sha256.New()
	out := io.MultiWriter(dst, hasher)

	buf := make([]byte, streamChunkSize)
	remaining := size
	for remaining > 0 {
		want := int64(len(buf))
		if remaining < want {
			want = remaining
		}
		n, err := io.ReadFull(src, buf[:want])
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return "", fmt.Errorf("transfer: write during stream: %w", werr)
			}
			remaining -= int64(n)
		}
		if err != nil {
			return "", fmt.Errorf("transfer: read during stream: %w", err)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
