// Package sfs implements a small single-volume, flat inode filesystem over
// a fixed-block device: a superblock, a contiguous inode region, and a data
// region addressed by absolute block number.
package sfs // import "github.com/linxiaxue/sfs"

import (
	"io"
)

// Basic Types

// ReadWriterAt is both a ReaderAt and a WriterAt.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// Block geometry constants. BlockSize is the one compile-time constant the
// reference implementation hard-codes; everything else is derived from a
// device's block count at Format/Mount time.
const (
	// BlockSize is the size in bytes of every block on the device.
	BlockSize = 4096

	// Magic identifies a formatted SFS superblock.
	Magic uint32 = 0xf0f03410

	// InodesPerBlock is the number of fixed-size inode records per inode block.
	InodesPerBlock = 128

	// PointersPerInode is the number of direct block pointers in an inode.
	PointersPerInode = 5

	// PointersPerBlock is the number of absolute block numbers held in one
	// indirect pointer block.
	PointersPerBlock = BlockSize / 4
)

// BlockNum identifies an absolute block on a Device. Block 0 is always the
// superblock.
type BlockNum uint32

// Inumber identifies an inode's slot in the on-disk inode array.
type Inumber uint32

// Device Layer

// Device is the fixed-block storage medium SFS is layered over. It is an
// external collaborator: SFS only ever calls through this interface and
// never assumes anything about how blocks are actually stored.
type Device interface {
	// Size reports the device's block count.
	Size() uint32

	// ReadBlock reads block bnum into buf, which must be BlockSize bytes.
	ReadBlock(bnum BlockNum, buf []byte) error

	// WriteBlock writes buf (BlockSize bytes) to block bnum.
	WriteBlock(bnum BlockNum, buf []byte) error

	// Mount marks the device as mounted.
	Mount()

	// Mounted reports whether Mount has been called.
	Mounted() bool
}

// InodeBlocks returns the number of blocks reserved for inodes on a device
// of n total blocks: ceil(n * 0.10).
func InodeBlocks(n uint32) uint32 {
	return uint32((uint64(n)*10 + 99) / 100)
}

// TotalInodes returns the total inode count for a device whose inode
// region spans ib blocks.
func TotalInodes(ib uint32) uint32 {
	return ib * InodesPerBlock
}
