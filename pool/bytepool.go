// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// BytePool recycles fixed-size read buffers. Buffers are stored as *[]byte
// so Put does not allocate.
type BytePool struct {
	pool sync.Pool
	size int
}

// NewBytePool returns a pool of size-byte buffers. size must be positive.
func NewBytePool(size int) *BytePool {
	b := &BytePool{size: size}
	b.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return b
}

// Size is the length of every buffer handed out.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer of length Size.
func (b *BytePool) GetBuffer() *[]byte {
	return b.pool.Get().(*[]byte)
}

// PutBuffer returns buf to the pool. Buffers of another size are dropped.
func (b *BytePool) PutBuffer(buf *[]byte) {
	if buf == nil || cap(*buf) < b.size {
		return
	}
	*buf = (*buf)[:b.size]
	b.pool.Put(buf)
}
