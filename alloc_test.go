package sfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFreeBitmapAllocate(t *testing.T) {
	r := require.New(t)

	f := newFreeBitmap(10)
	f.mark(0, true)
	f.mark(1, true)

	bn, ok := f.allocate(2)
	r.True(ok)
	r.EqualValues(2, bn)

	bn, ok = f.allocate(2)
	r.True(ok)
	r.EqualValues(3, bn)
}

func TestFreeBitmapAllocateRestartsAtStart(t *testing.T) {
	r := require.New(t)

	f := newFreeBitmap(5)
	bn, ok := f.allocate(0)
	r.True(ok)
	r.EqualValues(0, bn)

	f.mark(bn, false)

	bn, ok = f.allocate(0)
	r.True(ok)
	r.EqualValues(0, bn)
}

func TestFreeBitmapExhausted(t *testing.T) {
	r := require.New(t)

	f := newFreeBitmap(2)
	_, ok := f.allocate(0)
	r.True(ok)
	_, ok = f.allocate(0)
	r.True(ok)
	_, ok = f.allocate(0)
	r.False(ok)
}

func TestFreeBitmapMarkMany(t *testing.T) {
	r := require.New(t)

	f := newFreeBitmap(10)
	f.markMany([]BlockNum{2, 0, 5}, true)

	r.True(f.used[2])
	r.True(f.used[5])
	r.False(f.used[0]) // 0 is never marked: it isn't a pointer, it's "unused"
}
