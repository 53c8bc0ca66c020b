package blkdev

import (
	"io"
	"sync"

	"github.com/linxiaxue/sfs"
)

// memBuffer is a growable in-memory ReadWriterAt. It is the same shape as
// the test double the teacher package used for its own tests
// (testReadWriterAt), promoted here to production code since MemoryDevice
// needs exactly that behavior: read/write at arbitrary offsets, growing on
// write, EOF past the end on read.
type memBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (m *memBuffer) ReadAt(dst []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}

	n := copy(dst, m.buf[off:])
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memBuffer) WriteAt(data []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := off + int64(len(data))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:end], data)
	return len(data), nil
}

// NewMemoryDevice returns an unmounted, entirely in-memory sfs.Device with
// numBlocks blocks, each sfs.BlockSize bytes, initially all zero.
func NewMemoryDevice(numBlocks uint32) sfs.Device {
	return &device{
		lower:  &memBuffer{buf: make([]byte, uint64(numBlocks)*sfs.BlockSize)},
		blocks: numBlocks,
	}
}
