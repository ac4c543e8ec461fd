package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestWriter(t *testing.T) (*httptest.ResponseRecorder, gin.ResponseWriter) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	return recorder, ctx.Writer
}

func TestBufferPreservesWriteOrder(t *testing.T) {
	recorder, writer := newTestWriter(t)
	buffered := newBufferedWriter(writer, 0)

	buffered.WriteHeader(http.StatusCreated)
	buffered.Header().Set("X-Custom", "yes")
	buffered.Write([]byte("first "))
	buffered.WriteString("second ")
	buffered.Write([]byte("third"))

	// Nothing reaches the wire before flush
	if recorder.Body.Len() != 0 {
		t.Fatalf("Bytes leaked before flush: %q", recorder.Body.String())
	}

	if err := buffered.flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if recorder.Code != http.StatusCreated {
		t.Errorf("Expected 201, got %d", recorder.Code)
	}
	if recorder.Body.String() != "first second third" {
		t.Errorf("Write order not preserved: %q", recorder.Body.String())
	}
	if recorder.Header().Get("X-Custom") != "yes" {
		t.Error("Handler headers not replayed")
	}
}

func TestBufferDiscard(t *testing.T) {
	recorder, writer := newTestWriter(t)
	buffered := newBufferedWriter(writer, 0)

	buffered.Write([]byte("secret"))
	buffered.discard()

	if recorder.Body.Len() != 0 {
		t.Errorf("Discarded bytes leaked: %q", recorder.Body.String())
	}
	if buffered.Size() != 0 {
		t.Errorf("Expected empty buffer after discard, got %d bytes", buffered.Size())
	}
}

func TestBufferOverflow(t *testing.T) {
	_, writer := newTestWriter(t)
	buffered := newBufferedWriter(writer, 8)

	if _, err := buffered.Write([]byte("12345678")); err != nil {
		t.Fatalf("Write within limit failed: %v", err)
	}
	if _, err := buffered.Write([]byte("9")); err == nil {
		t.Fatal("Expected overflow error")
	}
	if !buffered.overflow {
		t.Error("Overflow flag not set")
	}
}

func TestBufferStatusDefaultsToOK(t *testing.T) {
	_, writer := newTestWriter(t)
	buffered := newBufferedWriter(writer, 0)

	if buffered.Status() != http.StatusOK {
		t.Errorf("Expected default 200, got %d", buffered.Status())
	}
	if buffered.Written() {
		t.Error("Fresh buffer must not report written")
	}

	buffered.Write([]byte("x"))
	if !buffered.Written() {
		t.Error("Buffer must report written after a write")
	}
}
