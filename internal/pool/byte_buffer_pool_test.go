package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	capacity := 1024
	bb := NewByteBuffer(capacity)

	require.NotNil(t, bb)
	require.NotNil(t, bb.B)
	assert.Equal(t, 0, len(bb.B), "new buffer should have zero length")
	assert.Equal(t, capacity, cap(bb.B), "new buffer should have specified capacity")
}

func TestByteBuffer_Bytes(t *testing.T) {
	bb := NewByteBuffer(BlockBufferDefaultSize)
	bb.B = append(bb.B, []byte("hello")...)

	b := bb.Bytes()

	assert.Equal(t, []byte("hello"), b)
	assert.True(t, &bb.B[0] == &b[0], "Bytes() should return the same underlying slice")
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(BlockBufferDefaultSize)
	bb.B = append(bb.B, []byte("some data")...)
	originalCap := cap(bb.B)

	bb.Reset()

	assert.Equal(t, 0, len(bb.B), "Reset should clear the buffer length")
	assert.Equal(t, originalCap, cap(bb.B), "Reset should preserve capacity")
}

func TestByteBuffer_Len_Cap(t *testing.T) {
	bb := NewByteBuffer(BlockBufferDefaultSize)

	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, BlockBufferDefaultSize, bb.Cap())

	bb.B = append(bb.B, []byte("test")...)
	assert.Equal(t, 4, bb.Len())
}

func TestByteBuffer_MustWrite(t *testing.T) {
	bb := NewByteBuffer(BlockBufferDefaultSize)

	bb.MustWrite([]byte("hello"))
	assert.Equal(t, []byte("hello"), bb.B)

	bb.MustWrite([]byte(" world"))
	assert.Equal(t, []byte("hello world"), bb.B)
}

func TestByteBuffer_Slice(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("0123456789"))

	assert.Equal(t, []byte("234"), bb.Slice(2, 5))
	assert.Panics(t, func() { bb.Slice(-1, 2) })
	assert.Panics(t, func() { bb.Slice(5, 2) })
	assert.Panics(t, func() { bb.Slice(0, 100) })
}

func TestByteBuffer_SetLength(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.SetLength(10)
	assert.Equal(t, 10, bb.Len())

	assert.Panics(t, func() { bb.SetLength(-1) })
	assert.Panics(t, func() { bb.SetLength(100) })
}

func TestByteBuffer_Extend(t *testing.T) {
	bb := NewByteBuffer(16)
	assert.True(t, bb.Extend(10))
	assert.Equal(t, 10, bb.Len())
	assert.False(t, bb.Extend(100))
}

func TestByteBuffer_ExtendOrGrow(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.ExtendOrGrow(100)
	assert.Equal(t, 100, bb.Len())
	assert.True(t, bb.Cap() >= 100)
}

func TestByteBuffer_Grow_SmallBuffer(t *testing.T) {
	bb := NewByteBuffer(8)
	bb.Grow(4)
	assert.True(t, bb.Cap() >= 12)
}

func TestByteBuffer_Grow_LargeBuffer(t *testing.T) {
	bb := NewByteBuffer(4 * BlockBufferDefaultSize)
	startCap := bb.Cap()
	bb.Grow(1)
	assert.True(t, bb.Cap() > startCap)
}

func TestByteBuffer_Grow_NoOpWhenCapacitySufficient(t *testing.T) {
	bb := NewByteBuffer(64)
	bb.MustWrite([]byte("1234"))
	startCap := bb.Cap()
	bb.Grow(4)
	assert.Equal(t, startCap, bb.Cap())
}

func TestByteBuffer_Write(t *testing.T) {
	bb := NewByteBuffer(BlockBufferDefaultSize)
	n, err := bb.Write([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []byte("payload"), bb.B)
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(BlockBufferDefaultSize)
	bb.MustWrite([]byte("stream me"))

	var dst bytes.Buffer
	n, err := bb.WriteTo(&dst)

	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.Equal(t, "stream me", dst.String())
}

func TestByteBufferPool_GetPut(t *testing.T) {
	p := NewByteBufferPool(64, 256)

	bb := p.Get()
	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, 64, bb.Cap())

	bb.MustWrite([]byte("reused"))
	p.Put(bb)

	bb2 := p.Get()
	assert.Equal(t, 0, bb2.Len(), "returned buffer should be reset before reuse")
}

func TestByteBufferPool_Put_DiscardsOversizedBuffers(t *testing.T) {
	p := NewByteBufferPool(16, 32)

	bb := NewByteBuffer(16)
	bb.Grow(1000)
	require.True(t, bb.Cap() > 32)

	p.Put(bb)
	assert.Equal(t, 16, p.Get().Cap(), "oversized buffer should not be handed out again")
	assert.NotPanics(t, func() { p.Put(nil) })
}

func TestGetPutBlockBuffer(t *testing.T) {
	bb := GetBlockBuffer()
	require.NotNil(t, bb)
	assert.Equal(t, BlockBufferDefaultSize, bb.Cap())
	bb.MustWrite([]byte("block payload"))
	PutBlockBuffer(bb)
}

func TestGetPutIndexBuffer(t *testing.T) {
	bb := GetIndexBuffer()
	require.NotNil(t, bb)
	assert.Equal(t, IndexBufferDefaultSize, bb.Cap())
	bb.MustWrite([]byte("index entries"))
	PutIndexBuffer(bb)
}
