package middleware

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// bufferedWriter captures the handler's status, headers and body so the
// gate can settle payment before releasing any of it. Bytes are replayed
// in the exact order the handler wrote them.
type bufferedWriter struct {
	gin.ResponseWriter
	body     *bytes.Buffer
	status   int
	header   http.Header
	written  bool
	maxSize  int
	overflow bool
}

func newBufferedWriter(w gin.ResponseWriter, maxSize int) *bufferedWriter {
	return &bufferedWriter{
		ResponseWriter: w,
		body:           &bytes.Buffer{},
		status:         http.StatusOK,
		header:         make(http.Header),
		maxSize:        maxSize,
	}
}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	if w.maxSize > 0 && w.body.Len()+len(data) > w.maxSize {
		w.overflow = true
		return 0, fmt.Errorf("response exceeds max buffer size (%d bytes)", w.maxSize)
	}
	w.written = true
	return w.body.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *bufferedWriter) WriteHeader(status int) {
	w.written = true
	w.status = status
}

// WriteHeaderNow is suppressed: nothing reaches the wire until flush.
func (w *bufferedWriter) WriteHeaderNow() {}

// Flush is suppressed for the same reason.
func (w *bufferedWriter) Flush() {}

func (w *bufferedWriter) Header() http.Header {
	return w.header
}

func (w *bufferedWriter) Status() int {
	return w.status
}

func (w *bufferedWriter) Size() int {
	return w.body.Len()
}

func (w *bufferedWriter) Written() bool {
	return w.written
}

// flush replays the captured response onto the real writer.
func (w *bufferedWriter) flush() error {
	for k, values := range w.header {
		for _, v := range values {
			w.ResponseWriter.Header().Add(k, v)
		}
	}
	w.ResponseWriter.WriteHeader(w.status)
	_, err := w.ResponseWriter.Write(w.body.Bytes())
	return err
}

// discard drops the captured response without releasing any bytes.
func (w *bufferedWriter) discard() {
	w.body.Reset()
}
