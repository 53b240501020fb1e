// Package checksum computes streaming MD5 digests for move verification and backups
package checksum

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sdejongh/reorgnorris/pkg/storage"
)

// ChunkSize is the read size used by the package-level helpers
const ChunkSize = 4096

// MD5Hasher streams files through MD5 using pooled buffers
type MD5Hasher struct {
	bufferSize int
	bufferPool *sync.Pool
}

// NewMD5Hasher creates a hasher reading bufferSize bytes per chunk
func NewMD5Hasher(bufferSize int) *MD5Hasher {
	if bufferSize < ChunkSize {
		bufferSize = ChunkSize
	}
	return &MD5Hasher{
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

var defaultHasher = NewMD5Hasher(ChunkSize)

// File returns the hex MD5 of the file at path
func File(path string) (string, error) {
	return defaultHasher.File(context.Background(), path)
}

// File returns the hex MD5 of the file at path
func (h *MD5Hasher) File(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return h.Reader(ctx, f)
}

// Backend returns the hex MD5 of a file read through a storage backend
func (h *MD5Hasher) Backend(ctx context.Context, backend storage.Backend, path string) (string, error) {
	reader, err := backend.Read(ctx, path)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	return h.Reader(ctx, reader)
}

// Reader returns the hex MD5 of everything read from r
func (h *MD5Hasher) Reader(ctx context.Context, r io.Reader) (string, error) {
	hash := md5.New()
	bufPtr := h.bufferPool.Get().(*[]byte)
	defer h.bufferPool.Put(bufPtr)
	buf := *bufPtr

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
