package gdb

import (
	"fmt"
	"strconv"
	"strings"
)

// Host I/O replies. gdb only ever reads the loaded executable, so a single
// fake descriptor is handed out.
const (
	hostOK   = "F 0"
	hostFail = "F -1"
	hostFD   = "F 1"
)

// DefaultOpenAllowed reports whether vFile:open may succeed for the
// hex-encoded path. Paths whose hex encoding starts with '6' are refused.
func DefaultOpenAllowed(pathHex string) bool {
	return !strings.HasPrefix(pathHex, "6")
}

// hostIO implements the vFile:<op>:<args> family.
func hostIO(t Target, allowed func(string) bool, args string) (string, error) {
	op, rest, _ := strings.Cut(strings.TrimPrefix(args, ":"), ":")
	switch op {
	case "setfs", "close":
		return hostOK, nil
	case "open":
		path, _, _ := strings.Cut(rest, ",")
		if !allowed(path) {
			return hostFail, nil
		}
		return hostFD, nil
	case "pread":
		return hostPread(t, rest)
	}
	return "", nil
}

// hostPread implements vFile:pread:fd,count,offset over the loaded binary.
// The reply carries raw bytes; escaping is left to the packet encoder.
func hostPread(t Target, args string) (string, error) {
	const cmd = "vFile:pread"
	fields := strings.Split(args, ",")
	if len(fields) != 3 {
		return "", invalidArg(cmd, fmt.Errorf("want fd,count,offset, got %q", args))
	}
	var vals [3]uint64
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, 64)
		if err != nil {
			return "", invalidArg(cmd, err)
		}
		vals[i] = v
	}
	count, offset := vals[1], vals[2]

	if t == nil {
		return hostFail, nil
	}
	data := t.BinaryData()
	if data == nil {
		return hostFail, nil
	}

	var chunk []byte
	if offset < uint64(len(data)) {
		end := uint64(len(data))
		if count < end-offset {
			end = offset + count
		}
		chunk = data[offset:end]
	}
	var sb strings.Builder
	sb.Grow(len(chunk) + 16)
	sb.WriteString("F ")
	sb.WriteString(strconv.FormatUint(uint64(len(chunk)), 16))
	sb.WriteByte(';')
	sb.Write(chunk)
	return sb.String(), nil
}

// execFileXfer implements qXfer:exec-file:read:annex:offset,length. The
// whole name fits in one chunk.
func execFileXfer(execFile, args string) (string, error) {
	parts := strings.SplitN(strings.TrimPrefix(args, ":"), ":", 3)
	if len(parts) < 2 || parts[0] != "exec-file" || parts[1] != "read" {
		return "", nil
	}
	return "l" + execFile, nil
}
