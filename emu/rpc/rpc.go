// Package rpc is the control plane of a running gdb server: it reports its
// status, drops the debugger connection or stops the simulator.
package rpc

import (
	"net"

	"rawrsgdb/emu/log"
)

var modRPC = log.NewModule("rpc")

// Status of a running server.
type Status struct {
	Machine     string
	PC          uint64
	Session     string
	Client      string
	Breakpoints []uint64
}

func UnusedPort() int {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		panic("pickUnusedPort failed: " + err.Error())
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		panic("pickUnusedPort failed: " + err.Error())
	}
	return port
}
