package gdb

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Breakpoints is the set of active software breakpoints, mirrored into the
// target.
type Breakpoints struct {
	active map[uint64]struct{}
}

func newBreakpoints() *Breakpoints {
	return &Breakpoints{active: make(map[uint64]struct{})}
}

// Insert records addr and asks the target to break there.
func (b *Breakpoints) Insert(t Target, addr uint64) {
	b.active[addr] = struct{}{}
	if t != nil {
		t.BreakpointSet(strconv.FormatUint(addr, 16))
	}
}

// Remove forgets addr and asks the target to stop breaking there.
func (b *Breakpoints) Remove(t Target, addr uint64) {
	if t != nil {
		t.BreakpointClear(strconv.FormatUint(addr, 16))
	}
	delete(b.active, addr)
}

func (b *Breakpoints) Has(addr uint64) bool {
	_, ok := b.active[addr]
	return ok
}

// Addrs returns the active breakpoint addresses in ascending order.
func (b *Breakpoints) Addrs() []uint64 {
	return slices.Sorted(maps.Keys(b.active))
}

// parseBreakpoint parses "type,addr,kind[;cond...]". Type and kind are not
// interpreted, only software breakpoints exist.
func parseBreakpoint(cmd, args string) (uint64, error) {
	args, _, _ = strings.Cut(args, ";")
	fields := strings.Split(args, ",")
	if len(fields) != 3 {
		return 0, invalidArg(cmd, fmt.Errorf("want type,addr,kind, got %q", args))
	}
	addr, err := strconv.ParseUint(fields[1], 16, 64)
	if err != nil {
		return 0, invalidArg(cmd, err)
	}
	return addr, nil
}
