package rpc

import (
	"io"
	"net"
	"net/http"
	"net/rpc"
	"strconv"
)

// Ctl is what the control plane acts on.
type Ctl interface {
	Status() Status
	Disconnect()
	Quit()
}

type ctlProxy struct {
	ctl Ctl
}

func (cp *ctlProxy) Status(_ *struct{}, reply *Status) error { *reply = cp.ctl.Status(); return nil }
func (cp *ctlProxy) Disconnect(_, _ *struct{}) error         { cp.ctl.Disconnect(); return nil }
func (cp *ctlProxy) Quit(_, _ *struct{}) error               { cp.ctl.Quit(); return nil }

type Server struct {
	io.Closer
	Port int
}

// NewServer starts serving ctl on localhost:port. Port 0 picks a free port.
func NewServer(port int, ctl Ctl) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("ctl", &ctlProxy{ctl: ctl}); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, srv)

	l, err := net.Listen("tcp", "localhost:"+strconv.Itoa(port))
	if err != nil {
		return nil, err
	}
	port = l.Addr().(*net.TCPAddr).Port

	modRPC.InfoZ("rpc server listening").Int("port", port).End()
	go http.Serve(l, mux)
	return &Server{Closer: l, Port: port}, nil
}
