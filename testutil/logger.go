package testutil

import (
	"bytes"
	"io"
	"sync"

	"github.com/vnkhanh/e-cert-backend/logger"
)

func MakeNoopLogger() *logger.Logger {
	return logger.NewWithOptions(logger.Options{Output: io.Discard})
}

// LogBuffer collects JSON log lines written from any goroutine.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// MakeBufferLogger logs every level as JSON into the returned buffer.
func MakeBufferLogger() (*logger.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return logger.NewWithOptions(logger.Options{Level: -4, Format: "json", Output: buf}), buf
}
