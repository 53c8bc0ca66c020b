package sfs

import "encoding/binary"

// Layout codec. Each of these types decodes/encodes the little-endian
// 32-bit words of one on-disk block shape, bit-exact with the original
// C union { SuperBlock; Inode[INODES_PER_BLOCK]; uint32_t[POINTERS_PER_BLOCK]; char[BLOCK_SIZE] }.

// superblock mirrors the 16-byte header of block 0. The remainder of the
// block is don't-care on write and ignored on read.
type superblock struct {
	Magic       uint32
	Blocks      uint32
	InodeBlocks uint32
	Inodes      uint32
}

func (s superblock) encode() []byte {
	buf := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(buf[0:4], s.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], s.Blocks)
	binary.LittleEndian.PutUint32(buf[8:12], s.InodeBlocks)
	binary.LittleEndian.PutUint32(buf[12:16], s.Inodes)
	return buf
}

func decodeSuperblock(buf []byte) superblock {
	return superblock{
		Magic:       binary.LittleEndian.Uint32(buf[0:4]),
		Blocks:      binary.LittleEndian.Uint32(buf[4:8]),
		InodeBlocks: binary.LittleEndian.Uint32(buf[8:12]),
		Inodes:      binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// inodeSize is the on-disk size of one inode record: Valid, Size, 5
// Direct pointers, Indirect, all u32.
const inodeSize = 4 * (2 + PointersPerInode + 1)

// inode mirrors one 32-byte on-disk inode record.
type inode struct {
	Valid    uint32
	Size     uint32
	Direct   [PointersPerInode]BlockNum
	Indirect BlockNum
}

func (n inode) encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], n.Valid)
	binary.LittleEndian.PutUint32(dst[4:8], n.Size)
	for i, d := range n.Direct {
		off := 8 + 4*i
		binary.LittleEndian.PutUint32(dst[off:off+4], uint32(d))
	}
	indirectOff := 8 + 4*PointersPerInode
	binary.LittleEndian.PutUint32(dst[indirectOff:indirectOff+4], uint32(n.Indirect))
}

func decodeInode(src []byte) inode {
	var n inode
	n.Valid = binary.LittleEndian.Uint32(src[0:4])
	n.Size = binary.LittleEndian.Uint32(src[4:8])
	for i := range n.Direct {
		off := 8 + 4*i
		n.Direct[i] = BlockNum(binary.LittleEndian.Uint32(src[off : off+4]))
	}
	indirectOff := 8 + 4*PointersPerInode
	n.Indirect = BlockNum(binary.LittleEndian.Uint32(src[indirectOff : indirectOff+4]))
	return n
}

// inodeLocation returns the inode block number and the slot index within
// it for inumber n.
func inodeLocation(n Inumber) (blk BlockNum, slot int) {
	return BlockNum(1 + uint32(n)/InodesPerBlock), int(uint32(n) % InodesPerBlock)
}

// pointerBlock encodes/decodes an indirect block: PointersPerBlock
// absolute block numbers, 0 meaning unused.
type pointerBlock [PointersPerBlock]BlockNum

func (p pointerBlock) encode() []byte {
	buf := make([]byte, BlockSize)
	for i, bn := range p {
		binary.LittleEndian.PutUint32(buf[4*i:4*i+4], uint32(bn))
	}
	return buf
}

func decodePointerBlock(buf []byte) pointerBlock {
	var p pointerBlock
	for i := range p {
		p[i] = BlockNum(binary.LittleEndian.Uint32(buf[4*i : 4*i+4]))
	}
	return p
}
