package gdb

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// gdb register numbering (riscv): 0 is x0, 1-31 are x1..x31, 32 is the pc
// and 33 onwards the floating point bank. Only the first 33 slots travel in
// 'g'/'G' packets.
const (
	gdbZero     = 0
	gdbPC       = 32
	gdbLastReg  = 65
	gdbGPRSlots = 33

	regHexLen = 16
)

// nativeIndex maps a gdb register number to the native register vector.
// The zero register has no native slot and maps to -1.
func nativeIndex(gdbReg uint64) (int, bool) {
	switch {
	case gdbReg == gdbZero:
		return -1, true
	case gdbReg < gdbPC:
		return int(gdbReg), true
	case gdbReg == gdbPC:
		return NativePC, true
	case gdbReg <= gdbLastReg:
		return int(gdbReg) - 1, true
	}
	return 0, false
}

// appendReg appends v as 16 hex digits, least significant byte first.
func appendReg(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return hex.AppendEncode(dst, buf[:])
}

// parseReg decodes a little-endian hex register value. Shorter values are
// zero-extended.
func parseReg(s string) (uint64, error) {
	if len(s) > regHexLen || len(s)%2 != 0 {
		return 0, fmt.Errorf("bad register value length %d", len(s))
	}
	var buf [8]byte
	if _, err := hex.Decode(buf[:], []byte(s)); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// readRegisters implements 'g'. A detached session reports all zeroes.
func readRegisters(t Target) string {
	var regs RegisterFile
	if t != nil {
		regs = t.Registers()
	}

	buf := make([]byte, 0, gdbGPRSlots*regHexLen)
	buf = appendReg(buf, 0)
	for i := 1; i < gdbPC; i++ {
		buf = appendReg(buf, regs[i])
	}
	buf = appendReg(buf, regs[NativePC])
	return string(buf)
}

// writeRegisters implements 'G'. The zero register slot is skipped, the next
// 32 slots are x1..x31 then pc. Anything after is ignored.
func writeRegisters(t Target, args string) error {
	const cmd = "G"
	if len(args) < gdbGPRSlots*regHexLen {
		return invalidArg(cmd, fmt.Errorf("register blob too short: %d hex digits", len(args)))
	}
	if t == nil {
		return unavailable(cmd)
	}

	regs := t.Registers()
	blob := args[regHexLen:]
	for i := range gdbPC {
		v, err := parseReg(blob[i*regHexLen : (i+1)*regHexLen])
		if err != nil {
			return invalidArg(cmd, fmt.Errorf("slot %d: %w", i+1, err))
		}
		regs[(i+1)%32] = v
	}
	t.SetRegisters(regs)
	return nil
}

func parseRegNum(cmd, s string) (uint64, int, error) {
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, 0, invalidArg(cmd, err)
	}
	idx, ok := nativeIndex(n)
	if !ok {
		return 0, 0, outOfRange(cmd, "register %d", n)
	}
	return n, idx, nil
}

// readRegister implements 'p n'.
func readRegister(t Target, args string) (string, error) {
	_, idx, err := parseRegNum("p", args)
	if err != nil {
		return "", err
	}

	var v uint64
	if t != nil && idx >= 0 {
		regs := t.Registers()
		v = regs[idx]
	}
	return string(appendReg(nil, v)), nil
}

// writeRegister implements 'P n=v'. Writes to the zero register are dropped.
func writeRegister(t Target, args string) error {
	const cmd = "P"
	num, val, ok := strings.Cut(args, "=")
	if !ok {
		return invalidArg(cmd, fmt.Errorf("missing '=' in %q", args))
	}
	_, idx, err := parseRegNum(cmd, num)
	if err != nil {
		return err
	}
	v, err := parseReg(val)
	if err != nil {
		return invalidArg(cmd, err)
	}
	if t == nil {
		return unavailable(cmd)
	}
	if idx < 0 {
		return nil
	}

	regs := t.Registers()
	regs[idx] = v
	t.SetRegisters(regs)
	return nil
}
