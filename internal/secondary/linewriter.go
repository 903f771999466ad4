package secondary

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

// lineWriter logs each complete line written to it at debug level.
type lineWriter struct {
	mu     sync.Mutex
	logger zerolog.Logger
	stream string
	buf    bytes.Buffer
}

func newLineWriter(logger zerolog.Logger, stream string) *lineWriter {
	return &lineWriter{logger: logger, stream: stream}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := w.buf.Next(i + 1)
		w.emit(line[:i])
	}
	return len(p), nil
}

// Flush logs a trailing line that had no newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	w.logger.Debug().Str("stream", w.stream).Msg(string(line))
}
