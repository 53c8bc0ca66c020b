package sfs

import "errors"

// Sentinel errors returned by FileSystem operations. Callers compare with
// errors.Is rather than parsing messages.
var (
	// ErrDeviceMounted is returned by Format when the device is already mounted.
	ErrDeviceMounted = errors.New("sfs: device already mounted")

	// ErrCorrupt is returned by Mount when the superblock fails validation,
	// and by Read when Size and the pointer graph disagree.
	ErrCorrupt = errors.New("sfs: corrupt metadata")

	// ErrAlreadyMounted is returned by Mount when called again on the
	// already-bound device.
	ErrAlreadyMounted = errors.New("sfs: filesystem already mounted on this device")

	// ErrNotMounted is returned by any operation that requires a mounted
	// filesystem when none is mounted.
	ErrNotMounted = errors.New("sfs: not mounted")

	// ErrBadInumber is returned when an inumber is out of range.
	ErrBadInumber = errors.New("sfs: inumber out of range")

	// ErrBadLength is returned when a negative length is supplied.
	ErrBadLength = errors.New("sfs: negative length")

	// ErrBadOffset is returned when an offset is out of range for the
	// requested operation (Read requires offset < Size, Write requires
	// offset <= Size).
	ErrBadOffset = errors.New("sfs: offset out of range")

	// ErrInodeInvalid is returned when operating on an unallocated or
	// removed inode.
	ErrInodeInvalid = errors.New("sfs: inode not valid")

	// ErrNoFreeInode is returned by Create when every inode is in use.
	ErrNoFreeInode = errors.New("sfs: no free inode")
)
