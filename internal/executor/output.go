package executor

import "bytes"

// LimitWriter keeps the first Limit bytes written to it and discards the
// rest, while still reporting every write as complete so the producer keeps
// draining.
type LimitWriter struct {
	Limit int

	buf       bytes.Buffer
	truncated bool
}

func (w *LimitWriter) Write(p []byte) (int, error) {
	remaining := w.Limit - w.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			w.truncated = true
		}
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	return w.buf.Write(p)
}

// String returns the kept bytes.
func (w *LimitWriter) String() string {
	return w.buf.String()
}

// Truncated reports whether anything was discarded.
func (w *LimitWriter) Truncated() bool {
	return w.truncated
}
