package debugger

import (
	"io"
	"sync"
	"time"

	"rawrsgdb/emu/log"
)

const (
	// maxPending bounds the bytes queued for a debugger that doesn't read.
	maxPending = 1 << 20

	// drainTimeout bounds the time spent flushing queued bytes on close.
	drainTimeout = time.Second
)

// An outbox writes to a debugger connection from its own goroutine, so that
// queuing output never blocks, whether the debugger reads or not.
type outbox struct {
	conn   io.WriteCloser
	client string

	mu      sync.Mutex
	pending []byte

	wake   chan struct{}
	done   chan struct{}
	exited chan struct{}
}

func newOutbox(conn io.WriteCloser, client string) *outbox {
	o := &outbox{
		conn:   conn,
		client: client,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go o.loop()
	return o
}

// queue schedules b to be written. A connection with too much unread output
// is closed.
func (o *outbox) queue(b []byte) {
	o.mu.Lock()
	if len(o.pending)+len(b) > maxPending {
		o.mu.Unlock()
		log.ModDbg.WarnZ("debugger not reading, closing connection").String("client", o.client).End()
		o.conn.Close()
		return
	}
	o.pending = append(o.pending, b...)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) loop() {
	defer close(o.exited)
	for {
		select {
		case <-o.wake:
			if err := o.drain(); err != nil {
				log.ModDbg.WarnZ("failed to write to debugger").String("client", o.client).Error("err", err).End()
				o.conn.Close()
				return
			}
		case <-o.done:
			o.drain()
			return
		}
	}
}

func (o *outbox) drain() error {
	o.mu.Lock()
	buf := o.pending
	o.pending = nil
	o.mu.Unlock()

	if len(buf) == 0 {
		return nil
	}
	_, err := o.conn.Write(buf)
	return err
}

// close flushes what is queued, waiting at most drainTimeout, then stops the
// writer goroutine. It doesn't close the connection.
func (o *outbox) close() {
	close(o.done)
	select {
	case <-o.exited:
	case <-time.After(drainTimeout):
	}
}
