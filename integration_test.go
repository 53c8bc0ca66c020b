package sfs_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linxiaxue/sfs"
	"github.com/linxiaxue/sfs/blkdev"
)

// These exercise the public API end to end against the two reference
// Device implementations this module ships, the way a real caller would
// use the package rather than reaching into its internals.

func TestMemoryDeviceEndToEnd(t *testing.T) {
	r := require.New(t)

	dev := blkdev.NewMemoryDevice(100)
	r.NoError(sfs.Format(dev))

	fsys := sfs.New()
	r.NoError(fsys.Mount(dev))

	inum, err := fsys.Create()
	r.NoError(err)

	n, err := fsys.Write(inum, []byte("round trip"), 10, 0)
	r.NoError(err)
	r.Equal(10, n)

	buf := make([]byte, 10)
	n, err = fsys.Read(inum, buf, 10, 0)
	r.NoError(err)
	r.Equal(10, n)
	r.Equal("round trip", string(buf))
}

func TestFileDeviceSurvivesRemount(t *testing.T) {
	r := require.New(t)

	f, err := os.CreateTemp("", "sfs-*.img")
	r.NoError(err)
	path := f.Name()
	r.NoError(f.Close())
	defer os.Remove(path)

	dev, err := blkdev.NewFileDevice(path, 100)
	r.NoError(err)
	r.NoError(sfs.Format(dev))

	fsys := sfs.New()
	r.NoError(fsys.Mount(dev))

	inum, err := fsys.Create()
	r.NoError(err)

	data := bytes.Repeat([]byte{0x42}, sfs.BlockSize+13)
	n, err := fsys.Write(inum, data, len(data), 0)
	r.NoError(err)
	r.Equal(len(data), n)
	r.NoError(dev.Barrier())
	r.NoError(dev.Close())

	// A fresh process opening the same file sees everything that was
	// written, since the free map and inode cache are rebuilt from disk.
	dev2, err := blkdev.NewFileDevice(path, 100)
	r.NoError(err)
	defer dev2.Close()

	fsys2 := sfs.New()
	r.NoError(fsys2.Mount(dev2))

	size, err := fsys2.Stat(inum)
	r.NoError(err)
	r.EqualValues(len(data), size)

	out := make([]byte, len(data))
	n, err = fsys2.Read(inum, out, len(data), 0)
	r.NoError(err)
	r.Equal(len(data), n)
	r.True(bytes.Equal(data, out))
}
