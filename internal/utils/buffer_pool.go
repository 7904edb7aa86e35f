package utils

import (
	"bytes"
	"sync"
)

// maxPooledBufferSize bounds what's returned to the pool so one huge
// request body doesn't permanently inflate it.
const maxPooledBufferSize = 64 * 1024

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// GetBuffer retrieves a reset buffer from the pool, used to read
// request bodies without an extra allocation per request.
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// PutBuffer returns buf to the pool unless it grew past
// maxPooledBufferSize, in which case it's discarded.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	if buf.Cap() > maxPooledBufferSize {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
