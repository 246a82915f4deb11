package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/jx"

	"rawrsgdb/emu"
	"rawrsgdb/emu/rpc"
)

func infoMain(args Info, w io.Writer) {
	bin, err := emu.LoadBinary(args.BinPath)
	checkf(err, "failed to load binary")

	if args.JSON {
		_, err = w.Write(binaryJSON(bin))
	} else {
		err = printBinary(w, bin)
	}
	checkf(err, "failed to write infos")
}

func printBinary(w io.Writer, bin *emu.Binary) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Path:\t%s\n", bin.Path)
	fmt.Fprintf(tw, "Class:\t%s\n", bin.Class)
	fmt.Fprintf(tw, "Machine:\t%s\n", bin.Machine)
	fmt.Fprintf(tw, "Entry:\t0x%x\n", bin.Entry)
	fmt.Fprintf(tw, "Size:\t%d bytes\n", len(bin.Raw()))
	fmt.Fprintf(tw, "\nSegment\tAddress\tSize\tFlags\n")
	for i, s := range bin.Segments {
		fmt.Fprintf(tw, "%d\t0x%x\t0x%x\t%s\n", i, s.Addr, s.Size, s.Flags)
	}
	return tw.Flush()
}

func binaryJSON(bin *emu.Binary) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("path", func(e *jx.Encoder) { e.Str(bin.Path) })
		e.Field("class", func(e *jx.Encoder) { e.Str(bin.Class.String()) })
		e.Field("machine", func(e *jx.Encoder) { e.Str(bin.Machine.String()) })
		e.Field("entry", func(e *jx.Encoder) { e.UInt64(bin.Entry) })
		e.Field("size", func(e *jx.Encoder) { e.Int(len(bin.Raw())) })
		e.Field("segments", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, s := range bin.Segments {
					e.Obj(func(e *jx.Encoder) {
						e.Field("addr", func(e *jx.Encoder) { e.UInt64(s.Addr) })
						e.Field("size", func(e *jx.Encoder) { e.UInt64(s.Size) })
						e.Field("flags", func(e *jx.Encoder) { e.Str(s.Flags.String()) })
					})
				}
			})
		})
	})
	return append(e.Bytes(), '\n')
}

func ctlMain(args Ctl, w io.Writer) {
	client, err := rpc.NewClient(args.Port)
	checkf(err, "failed to connect to control server")
	defer client.Close()

	switch args.Action {
	case "status":
		st, err := client.Status()
		checkf(err, "failed to get status")
		if args.JSON {
			_, err = w.Write(statusJSON(st))
		} else {
			err = printStatus(w, st)
		}
		checkf(err, "failed to write status")
	case "disconnect":
		checkf(client.Disconnect(), "failed to disconnect debugger")
	case "quit":
		checkf(client.Quit(), "failed to quit")
	}
}

func printStatus(w io.Writer, st rpc.Status) error {
	bps := make([]string, len(st.Breakpoints))
	for i, addr := range st.Breakpoints {
		bps[i] = "0x" + strconv.FormatUint(addr, 16)
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Machine:\t%s\n", st.Machine)
	fmt.Fprintf(tw, "PC:\t0x%x\n", st.PC)
	fmt.Fprintf(tw, "Session:\t%s\n", st.Session)
	fmt.Fprintf(tw, "Client:\t%s\n", st.Client)
	fmt.Fprintf(tw, "Breakpoints:\t%s\n", strings.Join(bps, " "))
	return tw.Flush()
}

func statusJSON(st rpc.Status) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("machine", func(e *jx.Encoder) { e.Str(st.Machine) })
		e.Field("pc", func(e *jx.Encoder) { e.UInt64(st.PC) })
		e.Field("session", func(e *jx.Encoder) { e.Str(st.Session) })
		e.Field("client", func(e *jx.Encoder) { e.Str(st.Client) })
		e.Field("breakpoints", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, addr := range st.Breakpoints {
					e.UInt64(addr)
				}
			})
		})
	})
	return append(e.Bytes(), '\n')
}
