package usecase

import (
	"errors"
	"io"
)

const (
	defaultChunkSize = 3200
	minChunkSize     = 256
)

// pumpAudioChunks cuts r into fixed-size chunks and hands each one to emit in
// capture order. A short read at EOF is flushed as a final partial chunk.
// It returns nil on EOF or when emit reports that nobody is listening.
func pumpAudioChunks(r io.Reader, chunkSize int, emit func([]byte) bool) error {
	if chunkSize < minChunkSize {
		chunkSize = defaultChunkSize
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !emit(chunk) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
	}
}
