package gdb

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// maxMemAccess bounds the length of a single 'm'/'M' request.
const maxMemAccess = 64 * 1024

func parseAddrLen(cmd, s string) (addr, length uint64, err error) {
	a, l, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, invalidArg(cmd, fmt.Errorf("want addr,length, got %q", s))
	}
	if addr, err = strconv.ParseUint(a, 16, 64); err != nil {
		return 0, 0, invalidArg(cmd, err)
	}
	if length, err = strconv.ParseUint(l, 16, 64); err != nil {
		return 0, 0, invalidArg(cmd, err)
	}
	if length > maxMemAccess {
		return 0, 0, outOfRange(cmd, "length %#x", length)
	}
	return addr, length, nil
}

// readMemory implements 'm addr,length'. Without a target the memory reads
// as zeroes.
func readMemory(t Target, args string) (string, error) {
	addr, length, err := parseAddrLen("m", args)
	if err != nil {
		return "", err
	}

	if t == nil {
		return strings.Repeat("00", int(length)), nil
	}
	data, err := t.ReadMemory(addr, length)
	if err != nil {
		return "", targetFailure("m", err)
	}
	return hex.EncodeToString(data), nil
}

// writeMemory implements 'M addr,length:data'.
func writeMemory(t Target, args string) error {
	const cmd = "M"
	hdr, data, ok := strings.Cut(args, ":")
	if !ok {
		return invalidArg(cmd, fmt.Errorf("missing ':' in %q", args))
	}
	addr, length, err := parseAddrLen(cmd, hdr)
	if err != nil {
		return err
	}
	if uint64(len(data)) != 2*length {
		return invalidArg(cmd, fmt.Errorf("got %d hex digits for %d bytes", len(data), length))
	}
	buf, err := hex.DecodeString(data)
	if err != nil {
		return invalidArg(cmd, err)
	}
	if t == nil {
		return unavailable(cmd)
	}
	if err := t.WriteMemory(addr, buf); err != nil {
		return targetFailure(cmd, err)
	}
	return nil
}
