package sfs

import (
	"fmt"
	"io"
	"sync"
)

// FileSystem is a handle bound to a single Device. A zero-value FileSystem
// is unmounted and ready to Mount. Operations are synchronous and the
// handle is not safe for concurrent use by multiple goroutines without
// external serialization; the internal mutex only protects the in-memory
// bitmap and inode cache against accidental concurrent misuse, the way
// blkfile.Blocks guards its own bookkeeping.
type FileSystem struct {
	mu sync.Mutex

	device Device

	blocks      uint32 // N
	inodeBlocks uint32 // I
	totalInodes uint32 // T

	free  *freeBitmap
	cache []inode
}

// New returns an unmounted filesystem handle.
func New() *FileSystem {
	return &FileSystem{}
}

// Format writes a fresh superblock and zero-fills every other block. The
// device must not be currently mounted. Format does not mount the device;
// establishing in-memory state is Mount's job.
func Format(dev Device) error {
	if dev.Mounted() {
		return ErrDeviceMounted
	}

	n := dev.Size()
	ib := InodeBlocks(n)
	sb := superblock{
		Magic:       Magic,
		Blocks:      n,
		InodeBlocks: ib,
		Inodes:      TotalInodes(ib),
	}
	if err := dev.WriteBlock(0, sb.encode()); err != nil {
		return err
	}

	zero := make([]byte, BlockSize)
	for bn := uint32(1); bn < n; bn++ {
		if err := dev.WriteBlock(BlockNum(bn), zero); err != nil {
			return err
		}
	}
	return nil
}

// Mount binds fsys to dev, validating the superblock and rebuilding the
// free-block bitmap and inode cache by walking every inode block. Mounting
// the same device twice fails; mounting a different device discards any
// previously bound state without writing it back (the cache only ever
// mirrors disk, it never lags it).
func (fsys *FileSystem) Mount(dev Device) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.device != nil && sameDevice(fsys.device, dev) {
		return ErrAlreadyMounted
	}

	buf := make([]byte, BlockSize)
	if err := dev.ReadBlock(0, buf); err != nil {
		return err
	}
	sb := decodeSuperblock(buf)

	n := dev.Size()
	wantIB := InodeBlocks(n)
	if sb.Magic != Magic || sb.Blocks != n || sb.InodeBlocks != wantIB || sb.Inodes != TotalInodes(wantIB) {
		return ErrCorrupt
	}

	dev.Mount()

	free := newFreeBitmap(n)
	cache := make([]inode, sb.Inodes)

	for bn := uint32(0); bn <= sb.InodeBlocks; bn++ {
		free.mark(BlockNum(bn), true)
	}

	inodeBuf := make([]byte, BlockSize)
	inum := uint32(0)
	for ibnum := uint32(1); ibnum <= sb.InodeBlocks; ibnum++ {
		if err := dev.ReadBlock(BlockNum(ibnum), inodeBuf); err != nil {
			return err
		}
		for i := 0; i < InodesPerBlock; i, inum = i+1, inum+1 {
			rec := decodeInode(inodeBuf[i*inodeSize : (i+1)*inodeSize])
			if rec.Valid == 0 || rec.Size == 0 {
				continue
			}
			cache[inum] = rec
			free.markMany(rec.Direct[:], true)
			if rec.Indirect != 0 {
				free.mark(rec.Indirect, true)
				ptrBuf := make([]byte, BlockSize)
				if err := dev.ReadBlock(rec.Indirect, ptrBuf); err != nil {
					return err
				}
				pb := decodePointerBlock(ptrBuf)
				free.markMany(pb[:], true)
			}
		}
	}

	fsys.device = dev
	fsys.blocks = n
	fsys.inodeBlocks = sb.InodeBlocks
	fsys.totalInodes = sb.Inodes
	fsys.free = free
	fsys.cache = cache
	return nil
}

// sameDevice reports whether a and b are the same bound device. Device
// implementations are pointer types, so interface equality is the same as
// identity.
func sameDevice(a, b Device) bool {
	return a == b
}

func (fsys *FileSystem) firstDataBlock() BlockNum {
	return BlockNum(fsys.inodeBlocks + 1)
}

func (fsys *FileSystem) loadInode(n Inumber) (inode, error) {
	blk, slot := inodeLocation(n)
	buf := make([]byte, BlockSize)
	if err := fsys.device.ReadBlock(blk, buf); err != nil {
		return inode{}, err
	}
	return decodeInode(buf[slot*inodeSize : (slot+1)*inodeSize]), nil
}

func (fsys *FileSystem) saveInode(n Inumber, rec inode) error {
	blk, slot := inodeLocation(n)
	buf := make([]byte, BlockSize)
	if err := fsys.device.ReadBlock(blk, buf); err != nil {
		return err
	}
	rec.encode(buf[slot*inodeSize : (slot+1)*inodeSize])
	return fsys.device.WriteBlock(blk, buf)
}

// Create allocates the first free inode, found by scanning the in-memory
// cache (not by reloading from disk — the cache is kept coherent by every
// mutating operation, so a disk reload here would only restate what the
// cache already holds).
func (fsys *FileSystem) Create() (Inumber, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.device == nil {
		return 0, ErrNotMounted
	}

	for i, rec := range fsys.cache {
		if rec.Valid != 0 {
			continue
		}
		n := Inumber(i)
		fresh := inode{Valid: 1}
		if err := fsys.saveInode(n, fresh); err != nil {
			return 0, err
		}
		fsys.cache[i] = fresh
		return n, nil
	}
	return 0, ErrNoFreeInode
}

// Remove releases inumber's blocks back to the free map and clears its
// inode, both on disk and in the cache. The inode is reloaded from disk
// first since disk, not the cache, is authoritative for a single call.
func (fsys *FileSystem) Remove(n Inumber) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.device == nil {
		return ErrNotMounted
	}
	if uint32(n) >= fsys.totalInodes {
		return ErrBadInumber
	}

	rec, err := fsys.loadInode(n)
	if err != nil {
		return err
	}
	if rec.Valid == 0 {
		return ErrInodeInvalid
	}

	fsys.free.markMany(rec.Direct[:], false)
	if rec.Indirect != 0 {
		ptrBuf := make([]byte, BlockSize)
		if err := fsys.device.ReadBlock(rec.Indirect, ptrBuf); err != nil {
			return err
		}
		pb := decodePointerBlock(ptrBuf)
		fsys.free.markMany(pb[:], false)
		fsys.free.mark(rec.Indirect, false)
	}

	fsys.cache[n] = inode{}
	return fsys.saveInode(n, inode{})
}

// Stat returns the size in bytes of a valid inode.
func (fsys *FileSystem) Stat(n Inumber) (uint32, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.device == nil {
		return 0, ErrNotMounted
	}
	if uint32(n) >= fsys.totalInodes {
		return 0, ErrBadInumber
	}

	rec, err := fsys.loadInode(n)
	if err != nil {
		return 0, err
	}
	if rec.Valid == 0 {
		return 0, ErrInodeInvalid
	}
	return rec.Size, nil
}

// Read copies up to length bytes from inumber starting at offset into buf,
// spanning the direct pointers and, if needed, the indirect block.
func (fsys *FileSystem) Read(n Inumber, buf []byte, length, offset int) (int, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.device == nil {
		return 0, ErrNotMounted
	}
	if uint32(n) >= fsys.totalInodes {
		return 0, ErrBadInumber
	}
	if length < 0 {
		return 0, ErrBadLength
	}
	if offset < 0 {
		return 0, ErrBadOffset
	}

	rec, err := fsys.loadInode(n)
	if err != nil {
		return 0, err
	}
	if rec.Valid == 0 {
		return 0, ErrInodeInvalid
	}
	if offset >= int(rec.Size) {
		return 0, ErrBadOffset
	}

	if offset+length > int(rec.Size) {
		length = int(rec.Size) - offset
	}
	if length == 0 {
		return 0, nil
	}

	readBytes, err := fsys.iRead(rec.Direct[:], length, buf, offset)
	if err != nil {
		return readBytes, err
	}
	if readBytes == length {
		return length, nil
	}

	// Reload: Read must see the authoritative Indirect pointer for this
	// call, not whatever the cache happened to hold.
	rec, err = fsys.loadInode(n)
	if err != nil {
		return readBytes, err
	}
	if rec.Indirect == 0 {
		return 0, ErrCorrupt
	}

	effOffset := offset
	if offset <= PointersPerInode*BlockSize {
		effOffset = 0
	} else {
		effOffset -= PointersPerInode * BlockSize
	}

	ptrBuf := make([]byte, BlockSize)
	if err := fsys.device.ReadBlock(rec.Indirect, ptrBuf); err != nil {
		return readBytes, err
	}
	pb := decodePointerBlock(ptrBuf)

	n2, err := fsys.iRead(pb[:], length-readBytes, buf[readBytes:], effOffset)
	if err != nil {
		return readBytes, err
	}
	readBytes += n2
	if readBytes < length {
		return 0, ErrCorrupt
	}
	return length, nil
}

// iRead walks ptrs (either the direct array or a decoded indirect block)
// copying into data starting at offset until length bytes are copied or
// the array is exhausted, returning the number of bytes copied.
func (fsys *FileSystem) iRead(ptrs []BlockNum, length int, data []byte, offset int) (int, error) {
	readBytes := 0
	scratch := make([]byte, BlockSize)

	for d, bn := range ptrs {
		if bn == 0 {
			continue
		}
		if offset >= (d+1)*BlockSize {
			continue
		}

		if offset <= d*BlockSize && length-readBytes > BlockSize {
			if err := fsys.device.ReadBlock(bn, data[readBytes:readBytes+BlockSize]); err != nil {
				return readBytes, err
			}
			readBytes += BlockSize
			continue
		}

		if offset <= d*BlockSize {
			if err := fsys.device.ReadBlock(bn, scratch); err != nil {
				return readBytes, err
			}
			copy(data[readBytes:length], scratch[:length-readBytes])
			return length, nil
		}

		// The first block touched straddles offset.
		if err := fsys.device.ReadBlock(bn, scratch); err != nil {
			return readBytes, err
		}
		o := offset % BlockSize
		if offset+length <= (d+1)*BlockSize {
			copy(data[readBytes:readBytes+length], scratch[o:o+length])
			return length, nil
		}
		n := BlockSize - o
		copy(data[readBytes:readBytes+n], scratch[o:o+n])
		readBytes += n
	}
	return readBytes, nil
}

// Write copies length bytes from buf into inumber starting at offset,
// allocating direct and (if needed) indirect blocks lazily. offset must
// not exceed the inode's current Size. On disk-full, the bytes persisted
// so far are returned with a nil error and the inode's Size reflects the
// short write.
func (fsys *FileSystem) Write(n Inumber, buf []byte, length, offset int) (int, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.device == nil {
		return 0, ErrNotMounted
	}
	if uint32(n) >= fsys.totalInodes {
		return 0, ErrBadInumber
	}
	if length < 0 {
		return 0, ErrBadLength
	}
	if offset < 0 {
		return 0, ErrBadOffset
	}
	if length == 0 {
		return 0, nil
	}

	rec, err := fsys.loadInode(n)
	if err != nil {
		return 0, err
	}
	if rec.Valid == 0 {
		return 0, ErrInodeInvalid
	}
	if offset > int(rec.Size) {
		return 0, ErrBadOffset
	}

	written, err := fsys.iWrite(rec.Direct[:], length, buf, offset)
	if err != nil {
		return written, err
	}
	if written == length {
		rec.Size = uint32(offset + length)
		fsys.cache[n] = rec
		if err := fsys.saveInode(n, rec); err != nil {
			return written, err
		}
		return length, nil
	}

	var pb pointerBlock
	if rec.Indirect == 0 {
		bn, ok := fsys.free.allocate(fsys.firstDataBlock())
		if !ok {
			rec.Size = uint32(offset + written)
			fsys.cache[n] = rec
			if err := fsys.saveInode(n, rec); err != nil {
				return written, err
			}
			return written, nil
		}
		rec.Indirect = bn
	} else {
		ptrBuf := make([]byte, BlockSize)
		if err := fsys.device.ReadBlock(rec.Indirect, ptrBuf); err != nil {
			return written, err
		}
		pb = decodePointerBlock(ptrBuf)
	}

	effOffset := 0
	if offset > PointersPerInode*BlockSize {
		effOffset = offset - PointersPerInode*BlockSize
	}

	n2, werr := fsys.iWrite(pb[:], length-written, buf[written:], effOffset)
	written += n2

	// Pointer block before the inode that references it, matching the
	// data-then-metadata write order used throughout.
	if perr := fsys.device.WriteBlock(rec.Indirect, pb.encode()); perr != nil {
		return written, perr
	}

	rec.Size = uint32(offset + written)
	fsys.cache[n] = rec
	if serr := fsys.saveInode(n, rec); serr != nil {
		return written, serr
	}
	return written, werr
}

// iWrite walks ptrs (either the direct array or a decoded indirect block),
// allocating a block for any zero slot it needs, and overwrites the
// relevant portion of each block with data starting at offset. It mutates
// ptrs in place as it allocates.
func (fsys *FileSystem) iWrite(ptrs []BlockNum, length int, data []byte, offset int) (int, error) {
	written := 0

	for d := range ptrs {
		if offset >= (d+1)*BlockSize {
			continue
		}

		var scratch []byte
		if ptrs[d] != 0 {
			scratch = make([]byte, BlockSize)
			if err := fsys.device.ReadBlock(ptrs[d], scratch); err != nil {
				return written, err
			}
		} else {
			bn, ok := fsys.free.allocate(fsys.firstDataBlock())
			if !ok {
				return written, nil
			}
			ptrs[d] = bn
			scratch = make([]byte, BlockSize)
		}
		bn := ptrs[d]

		if offset <= d*BlockSize && length-written > BlockSize {
			copy(scratch, data[written:written+BlockSize])
			if err := fsys.device.WriteBlock(bn, scratch); err != nil {
				return written, err
			}
			written += BlockSize
			continue
		}

		if offset <= d*BlockSize {
			copy(scratch, data[written:length])
			if err := fsys.device.WriteBlock(bn, scratch); err != nil {
				return written, err
			}
			return length, nil
		}

		o := offset % BlockSize
		if offset+length <= (d+1)*BlockSize {
			copy(scratch[o:o+length], data[written:written+length])
			if err := fsys.device.WriteBlock(bn, scratch); err != nil {
				return written, err
			}
			return length, nil
		}
		nn := BlockSize - o
		copy(scratch[o:o+nn], data[written:written+nn])
		if err := fsys.device.WriteBlock(bn, scratch); err != nil {
			return written, err
		}
		written += nn
	}
	return written, nil
}

// Debug prints the superblock and every valid inode's size and pointers.
// It reads the device directly and does not require Mount.
func Debug(dev Device, w io.Writer) error {
	buf := make([]byte, BlockSize)
	if err := dev.ReadBlock(0, buf); err != nil {
		return err
	}
	sb := decodeSuperblock(buf)

	if sb.Magic == Magic {
		fmt.Fprintln(w, "    magic number is valid")
	}
	fmt.Fprintln(w, "SuperBlock:")
	fmt.Fprintf(w, "    %d blocks\n", sb.Blocks)
	fmt.Fprintf(w, "    %d inode blocks\n", sb.InodeBlocks)
	fmt.Fprintf(w, "    %d inodes\n", sb.Inodes)

	inodeBuf := make([]byte, BlockSize)
	inum := uint32(0)
	for ibnum := uint32(1); ibnum <= sb.InodeBlocks; ibnum++ {
		if err := dev.ReadBlock(BlockNum(ibnum), inodeBuf); err != nil {
			return err
		}
		for i := 0; i < InodesPerBlock; i, inum = i+1, inum+1 {
			rec := decodeInode(inodeBuf[i*inodeSize : (i+1)*inodeSize])
			if rec.Valid == 0 {
				continue
			}

			fmt.Fprintf(w, "Inode %d:\n", inum)
			fmt.Fprintf(w, "    size: %d bytes\n", rec.Size)
			fmt.Fprint(w, "    direct blocks:")
			for _, d := range rec.Direct {
				if d != 0 {
					fmt.Fprintf(w, " %d", d)
				}
			}
			fmt.Fprintln(w)

			if rec.Indirect != 0 {
				fmt.Fprintf(w, "    indirect block: %d\n", rec.Indirect)
				ptrBuf := make([]byte, BlockSize)
				if err := dev.ReadBlock(rec.Indirect, ptrBuf); err != nil {
					return err
				}
				pb := decodePointerBlock(ptrBuf)
				fmt.Fprint(w, "    indirect data blocks:")
				for _, p := range pb {
					if p != 0 {
						fmt.Fprintf(w, " %d", p)
					}
				}
				fmt.Fprintln(w)
			}
		}
	}
	return nil
}
