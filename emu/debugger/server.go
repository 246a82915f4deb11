package debugger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"rawrsgdb/emu"
	"rawrsgdb/emu/log"
)

// Server exposes a Driver over the transports enabled in the configuration.
type Server struct {
	drv *Driver
	cfg emu.ServerConfig
}

func NewServer(drv *Driver, cfg emu.ServerConfig) *Server {
	return &Server{drv: drv, cfg: cfg}
}

// Serve runs every configured transport until ctx is cancelled or one of
// them fails. All transports are opened before any is served: if one can't
// be opened, those already open are closed and the error is returned.
func (s *Server) Serve(ctx context.Context) error {
	var (
		tcp, ws net.Listener
		port    io.ReadWriteCloser
		opened  []io.Closer
	)
	fail := func(err error) error {
		for _, c := range opened {
			c.Close()
		}
		return err
	}

	if s.cfg.Listen != "" {
		ln, err := net.Listen("tcp", s.cfg.Listen)
		if err != nil {
			return fail(err)
		}
		tcp = ln
		opened = append(opened, ln)
	}
	if s.cfg.Websocket != "" {
		ln, err := net.Listen("tcp", s.cfg.Websocket)
		if err != nil {
			return fail(err)
		}
		ws = ln
		opened = append(opened, ln)
	}
	if s.cfg.Serial != "" {
		dev, err := OpenSerial(s.cfg.Serial, s.cfg.Baud)
		if err != nil {
			return fail(fmt.Errorf("serial %s: %w", s.cfg.Serial, err))
		}
		port = dev
	}

	g, ctx := errgroup.WithContext(ctx)
	if tcp != nil {
		log.ModDbg.InfoZ(fmt.Sprintf("gdb server listening on %s", tcp.Addr())).End()
		g.Go(func() error { return s.ServeListener(ctx, tcp) })
	}
	if ws != nil {
		log.ModDbg.InfoZ(fmt.Sprintf("gdb websocket listening on ws://%s/ws", ws.Addr())).End()
		g.Go(func() error { return s.serveHTTP(ctx, ws) })
	}
	if port != nil {
		log.ModDbg.InfoZ("gdb serial port open").String("dev", s.cfg.Serial).Int("baud", s.cfg.Baud).End()
		g.Go(func() error { return s.drv.Serve(ctx, port, s.cfg.Serial) })
	}
	return g.Wait()
}

// ServeListener accepts debugger connections on ln. Only one client is
// served at a time: a new connection replaces the previous one.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		} else if err != nil {
			return err
		}

		go func() {
			if err := s.drv.Serve(ctx, conn, conn.RemoteAddr().String()); err != nil {
				log.ModDbg.DebugZ("connection to debugger ended").Error("err", err).End()
			}
		}()
	}
}

func (s *Server) serveHTTP(ctx context.Context, ln net.Listener) error {
	server := http.Server{Handler: s.Handler()}
	stop := context.AfterFunc(ctx, func() { server.Close() })
	defer stop()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the HTTP handler serving the websocket endpoint /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebsocket)
	return mux
}

// handleWebsocket upgrades the connection; binary messages then carry raw
// protocol bytes in both directions.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	var upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	upgrader.CheckOrigin = func(r *http.Request) bool { return true }

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ModDbg.WarnZ("failed to perform websocket handshake").Error("err", err).End()
		return
	}

	log.ModDbg.DebugZ("websocket handshake success").End()

	if err := s.drv.Serve(r.Context(), &wsConn{ws: ws}, r.RemoteAddr); err != nil {
		log.ModDbg.DebugZ("connection to debugger ended").Error("err", err).End()
	}
}

// wsConn adapts a websocket connection to a byte stream.
type wsConn struct {
	ws *websocket.Conn
	r  io.Reader
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			typ, r, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if typ != websocket.BinaryMessage && typ != websocket.TextMessage {
				continue
			}
			c.r = r
		}

		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error { return c.ws.Close() }
