package debugger

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"rawrsgdb/emu"
	"rawrsgdb/emu/gdb"
	"rawrsgdb/emu/log"
)

// A Driver binds a gdb session to the machine and to at most one debugger
// connection at a time. All session accesses, including stop notifications
// coming from the machine goroutine, are serialized by the driver.
type Driver struct {
	mu     sync.Mutex
	sess   *gdb.Session
	conn   io.ReadWriteCloser
	out    *outbox
	client string
}

func NewDriver(m *emu.Machine, opts gdb.Options) *Driver {
	d := &Driver{sess: gdb.NewSession(m, opts)}
	m.OnStop(d.notifyStop)
	return d
}

// Status is a snapshot of the debugger side.
type Status struct {
	Session     string
	Client      string
	Breakpoints []uint64
}

func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Session:     d.sess.State().String(),
		Client:      d.client,
		Breakpoints: d.sess.Breakpoints(),
	}
}

// Serve drives the session with conn until the connection ends, the debugger
// detaches or another connection replaces it. Serve closes conn.
func (d *Driver) Serve(ctx context.Context, conn io.ReadWriteCloser, name string) error {
	d.mu.Lock()
	if d.conn != nil {
		log.ModDbg.InfoZ("replacing debugger connection").String("old", d.client).String("new", name).End()
		d.conn.Close()
	}
	out := newOutbox(conn, name)
	d.conn = conn
	d.out = out
	d.client = name
	d.sess.Reset()
	d.sess.Open()
	d.mu.Unlock()

	log.ModDbg.InfoZ("debugger connected").String("client", name).End()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer d.release(conn, out)

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 && !d.feed(conn, buf[:n]) {
			return nil
		}
		if err != nil {
			if isClosed(err) {
				return nil
			}
			return err
		}
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}

// feed hands b to the session and writes back its output. It returns false
// once conn is no longer the one served.
func (d *Driver) feed(conn io.ReadWriteCloser, b []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != conn {
		return false
	}
	d.sess.Feed(b)
	d.flush()
	return d.sess.State() != gdb.Disconnected
}

// flush queues pending session output. d.mu must be held.
func (d *Driver) flush() {
	out := d.sess.Output()
	if len(out) == 0 || d.out == nil {
		return
	}
	d.out.queue(out)
}

func (d *Driver) release(conn io.ReadWriteCloser, out *outbox) {
	d.mu.Lock()
	if d.conn == conn {
		d.sess.Reset()
		d.conn = nil
		d.out = nil
		log.ModDbg.InfoZ("debugger disconnected").String("client", d.client).End()
		d.client = ""
	}
	d.mu.Unlock()
	out.close()
	conn.Close()
}

func (d *Driver) notifyStop(s emu.Stop) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return
	}
	d.sess.NotifyStop(s.Signal())
	d.flush()
}

// Disconnect drops the current debugger connection, if any.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Shutdown detaches the machine: the session is reset and later connections
// talk to a target-less session.
func (d *Driver) Shutdown() {
	d.mu.Lock()
	conn := d.conn
	d.sess.Reset()
	d.sess.Attach(nil)
	d.mu.Unlock()

	log.ModEmu.InfoZ("simulator detached from debugger").End()
	if conn != nil {
		conn.Close()
	}
}
