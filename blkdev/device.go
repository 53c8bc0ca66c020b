// Package blkdev provides reference Device implementations for package
// sfs: an in-memory device for tests and a file-backed device for real
// volumes.
package blkdev

import (
	"errors"
	"sync"

	"github.com/linxiaxue/sfs"
)

// ErrOutOfRange is returned when a block number is not less than the
// device's block count.
var ErrOutOfRange = errors.New("blkdev: block number out of range")

// ErrBadBuffer is returned when a caller passes a buffer that is not
// exactly sfs.BlockSize bytes.
var ErrBadBuffer = errors.New("blkdev: buffer is not block-sized")

// device is the bookkeeping shared by every Device this package builds:
// a fixed block count layered over a ReadWriterAt, with a mounted flag
// guarded by a mutex the way blkfile.Blocks guards its own bookkeeping.
type device struct {
	mu      sync.Mutex
	lower   sfs.ReadWriterAt
	blocks  uint32
	mounted bool
}

func (d *device) Size() uint32 { return d.blocks }

func (d *device) Mount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mounted = true
}

func (d *device) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}

func (d *device) ReadBlock(bnum sfs.BlockNum, buf []byte) error {
	if len(buf) != sfs.BlockSize {
		return ErrBadBuffer
	}
	if uint32(bnum) >= d.blocks {
		return ErrOutOfRange
	}
	_, err := d.lower.ReadAt(buf, int64(bnum)*sfs.BlockSize)
	return err
}

func (d *device) WriteBlock(bnum sfs.BlockNum, buf []byte) error {
	if len(buf) != sfs.BlockSize {
		return ErrBadBuffer
	}
	if uint32(bnum) >= d.blocks {
		return ErrOutOfRange
	}
	_, err := d.lower.WriteAt(buf, int64(bnum)*sfs.BlockSize)
	return err
}
