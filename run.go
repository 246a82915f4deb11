package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"rawrsgdb/emu"
	"rawrsgdb/emu/debugger"
	"rawrsgdb/emu/gdb"
	"rawrsgdb/emu/log"
	"rawrsgdb/emu/rpc"
	"rawrsgdb/emu/trace"
)

// serveMain loads the binary and serves it to gdb until interrupted or
// until the simulator is told to quit.
func serveMain(args Serve, cfg emu.Config) {
	m := emu.NewMachine(cfg.Machine)
	log.AddContext(m)

	if args.BinPath != "" {
		bin, err := emu.LoadBinary(args.BinPath)
		checkf(err, "failed to load binary")
		m.Load(bin)
	}

	opts := gdb.Options{
		Strict:      cfg.GDB.StrictChecksum,
		NoAck:       !cfg.GDB.Ack,
		ExecFile:    cfg.GDB.ExecFile,
		OpenAllowed: cfg.GDB.OpenAllowed(),
	}
	if cfg.TraceOut != nil {
		defer cfg.TraceOut.Close()
		opts.Tracer = trace.NewWriter(cfg.TraceOut)
	}
	drv := debugger.NewDriver(m, opts)

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigctx)
	defer cancel()

	if cfg.Server.ControlPort != 0 {
		server, err := rpc.NewServer(cfg.Server.ControlPort, &control{m: m, drv: drv})
		checkf(err, "failed to start control server")
		defer server.Close()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := m.Run(ctx)
		drv.Shutdown()
		cancel()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return debugger.NewServer(drv, cfg.Server).Serve(ctx)
	})
	if cfg.Machine.WatchBinary && args.BinPath != "" {
		g.Go(func() error {
			return emu.WatchBinary(ctx, args.BinPath, m.Load)
		})
	}

	checkf(g.Wait(), "server error")
	log.ModEmu.InfoZ("bye").End()
}

// control implements rpc.Ctl.
type control struct {
	m   *emu.Machine
	drv *debugger.Driver
}

func (c *control) Status() rpc.Status {
	ds := c.drv.Status()
	return rpc.Status{
		Machine:     c.m.Status().String(),
		PC:          c.m.PC(),
		Session:     ds.Session,
		Client:      ds.Client,
		Breakpoints: ds.Breakpoints,
	}
}

func (c *control) Disconnect() { c.drv.Disconnect() }
func (c *control) Quit()       { c.m.Quit() }
