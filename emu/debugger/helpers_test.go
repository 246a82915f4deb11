package debugger

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"rawrsgdb/emu"
	"rawrsgdb/emu/gdb"
)

func frame(payload string) string {
	return fmt.Sprintf("$%s#%02x", payload, gdb.Checksum([]byte(payload)))
}

// newTestDriver returns a driver bound to a running machine without binary.
func newTestDriver(t *testing.T, cfg emu.MachineConfig) (*Driver, *emu.Machine) {
	t.Helper()

	m := emu.NewMachine(cfg)
	drv := NewDriver(m, gdb.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})
	return drv, m
}

// connect serves one end of a pipe and returns the other end, plus the
// channel receiving the result of Serve.
func connect(t *testing.T, drv *Driver, name string) (net.Conn, <-chan error) {
	t.Helper()

	client, server := net.Pipe()
	errc := make(chan error, 1)
	go func() { errc <- drv.Serve(context.Background(), server, name) }()
	t.Cleanup(func() { client.Close() })
	return client, errc
}

// exchange sends req and reads exactly len(want) bytes back.
func exchange(t *testing.T, conn net.Conn, req, want string) {
	t.Helper()

	conn.SetDeadline(time.Now().Add(5 * time.Second))
	if req != "" {
		if _, err := io.WriteString(conn, req); err != nil {
			t.Fatalf("write %q: %v", req, err)
		}
	}
	got := make([]byte, len(want))
	if _, err := io.ReadFull(conn, got); err != nil {
		t.Fatalf("read reply to %q: %v", req, err)
	}
	if string(got) != want {
		t.Fatalf("reply to %q = %q, want %q", req, got, want)
	}
}

func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()

	conn.SetDeadline(time.Now().Add(5 * time.Second))
	var b [1]byte
	if n, err := conn.Read(b[:]); err != io.EOF {
		t.Fatalf("Read = %d, %v, want EOF", n, err)
	}
}

func waitServe(t *testing.T, errc <-chan error) {
	t.Helper()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}
