package core

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/go-crypt/x/blake2b"
)

// fingerprintChunkSize bounds memory while hashing large media files.
const fingerprintChunkSize = 64 * 1024

// FingerprintReader computes a streaming BLAKE2b-256 digest over the full
// contents of r. The result depends only on the byte stream, never on
// filenames or metadata. If the stream cannot be fully read, an error is
// returned and no fingerprint is produced.
func FingerprintReader(r io.Reader) (Fingerprint, error) {
	h, err := blake2b.New(32, nil)
	if err != nil {
		return "", err
	}

	buf := make([]byte, fingerprintChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			// Hash writes never fail
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrContentUnreadable, err)
		}
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

// FingerprintFile computes the content fingerprint of the file at path.
func FingerprintFile(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrContentUnreadable, err)
	}
	defer f.Close()
	return FingerprintReader(f)
}
