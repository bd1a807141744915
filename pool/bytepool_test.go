package pool

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestBytePool(t *testing.T) {
	bp := NewBytePool(16)
	assert.Equal(t, bp.Size(), 16)

	buf := bp.GetBuffer()
	assert.Equal(t, len(*buf), 16)
	*buf = (*buf)[:3]
	bp.PutBuffer(buf)

	again := bp.GetBuffer()
	assert.Equal(t, len(*again), 16)

	small := make([]byte, 4)
	bp.PutBuffer(&small)
	bp.PutBuffer(nil)
	assert.Equal(t, len(*bp.GetBuffer()), 16)
}
