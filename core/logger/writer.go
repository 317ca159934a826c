package logger

import (
	"bufio"
	"io"
	"log/slog"
	"sync"
)

// sink is one log destination. It receives lines at or above min.
type sink struct {
	w   io.Writer
	min slog.Level
}

type queued struct {
	level slog.Level
	data  []byte
	flush chan error
}

// asyncWriter fans formatted lines out to its sinks from one goroutine.
// Buffers are flushed whenever the queue drains.
type asyncWriter struct {
	queue chan queued
	done  chan struct{}

	state  sync.RWMutex
	closed bool

	bufs []*bufio.Writer
	mins []slog.Level

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(sinks []sink, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		queue: make(chan queued, 256),
		done:  make(chan struct{}),
	}
	for _, s := range sinks {
		if s.w == nil {
			continue
		}
		w.bufs = append(w.bufs, bufio.NewWriterSize(s.w, bufSize))
		w.mins = append(w.mins, s.min)
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for q := range w.queue {
		if q.flush != nil {
			q.flush <- w.flushAll()
			continue
		}
		w.setErr(w.writeAll(q))
		if len(w.queue) == 0 {
			w.setErr(w.flushAll())
		}
	}
	w.setErr(w.flushAll())
}

// Write queues a copy of p for every sink accepting level. Writes after
// Close are dropped.
func (w *asyncWriter) Write(level slog.Level, p []byte) error {
	if err := w.getErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.state.RLock()
	defer w.state.RUnlock()
	if w.closed {
		return nil
	}
	w.queue <- queued{level: level, data: append([]byte(nil), p...)}
	return nil
}

// Flush waits until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	w.state.RLock()
	if w.closed {
		w.state.RUnlock()
		return w.getErr()
	}
	ack := make(chan error, 1)
	w.queue <- queued{flush: ack}
	w.state.RUnlock()
	if err := <-ack; err != nil {
		return err
	}
	return w.getErr()
}

// Close drains the queue, stops the loop and reports the first write error.
func (w *asyncWriter) Close() error {
	w.state.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.state.Unlock()
	<-w.done
	return w.getErr()
}

func (w *asyncWriter) writeAll(q queued) error {
	for i, b := range w.bufs {
		if q.level < w.mins[i] {
			continue
		}
		if _, err := b.Write(q.data); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushAll() error {
	var first error
	for _, b := range w.bufs {
		if err := b.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (w *asyncWriter) getErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
