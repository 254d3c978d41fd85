package protocol

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
)

// FlushWriter writes one JSON document per line and flushes after each one,
// so a reader on the other end of a pipe sees every response immediately.
type FlushWriter struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *json.Encoder
}

func NewFlushWriter(w io.Writer) *FlushWriter {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &FlushWriter{buf: buf, enc: enc}
}

func (f *FlushWriter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.Write(p)
}

func (f *FlushWriter) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.Flush()
}

// WriteJSON encodes v followed by a newline and flushes.
func (f *FlushWriter) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enc.Encode(v); err != nil {
		return err
	}
	return f.buf.Flush()
}
