package gdb

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"rawrsgdb/emu/log"
)

// Framing bytes.
const (
	pktStart  = '$'
	pktEnd    = '#'
	pktEscape = '}'
	pktRLE    = '*'
	ackOK     = '+'
	ackResend = '-'
	interrupt = 0x03
)

var (
	// ErrNoStart is returned when no '$' start marker could be found.
	ErrNoStart = errors.New("gdb: no packet start marker")
	// ErrTruncated is returned for packets shorter than "$#xx".
	ErrTruncated = errors.New("gdb: truncated packet")
	// ErrChecksum is only ever returned in strict mode.
	ErrChecksum = errors.New("gdb: checksum mismatch")
)

// Checksum returns the modulo-256 sum of b.
func Checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return sum
}

// A Codec frames and unframes RSP packets.
//
// By default a checksum mismatch on an inbound packet is logged and the
// payload is still delivered, the transport being local and reliable. In
// Strict mode mismatching packets are rejected with ErrChecksum and
// outbound checksums cover the escaped bytes, as plain RSP requires.
type Codec struct {
	Strict bool
}

// Decode extracts the payload of the first packet found in pkt. Bytes
// preceding the '$' start marker are ignored. The returned payload is
// unescaped and run-length expanded.
func (c Codec) Decode(pkt []byte) ([]byte, error) {
	start := bytes.IndexByte(pkt, pktStart)
	if start < 0 {
		return nil, ErrNoStart
	}
	pkt = pkt[start:]
	if len(pkt) <= 3 {
		return nil, ErrTruncated
	}

	raw := pkt[1 : len(pkt)-3]
	want := Checksum(raw)

	var got [1]byte
	_, err := hex.Decode(got[:], pkt[len(pkt)-2:])
	if err != nil || got[0] != want {
		if c.Strict {
			return nil, fmt.Errorf("%w: got %q, want %02x", ErrChecksum, pkt[len(pkt)-2:], want)
		}
		log.ModGDB.WarnZ("checksum mismatch, accepting packet").
			String("recv", string(pkt[len(pkt)-2:])).
			Hex8("calc", want).
			End()
	}

	return Unescape(raw), nil
}

// Encode frames payload into a packet, optionally preceded by a '+' ack.
func (c Codec) Encode(payload []byte, ack bool) []byte {
	buf := make([]byte, 0, len(payload)+8)
	if ack {
		buf = append(buf, ackOK)
	}
	buf = append(buf, pktStart)
	mark := len(buf)
	buf = Escape(buf, payload)

	sum := Checksum(payload)
	if c.Strict {
		sum = Checksum(buf[mark:])
	}
	buf = append(buf, pktEnd)
	return hex.AppendEncode(buf, []byte{sum})
}

func needsEscape(b byte) bool {
	return b == pktEscape || b == pktEnd || b == pktStart || b == pktRLE
}

// Escape appends the escaped form of payload to dst.
func Escape(dst, payload []byte) []byte {
	for _, b := range payload {
		if needsEscape(b) {
			dst = append(dst, pktEscape, b^0x20)
			continue
		}
		dst = append(dst, b)
	}
	return dst
}

type scanState uint8

const (
	scanNormal scanState = iota
	scanRunLength
	scanEscape
)

// Unescape reverses Escape and expands run-length sequences: "X*c" stands for
// X followed by c-29 more copies of X.
func Unescape(raw []byte) []byte {
	out := make([]byte, 0, len(raw))

	var last byte
	state := scanNormal
	for _, b := range raw {
		switch state {
		case scanNormal:
			switch b {
			case pktRLE:
				state = scanRunLength
			case pktEscape:
				state = scanEscape
			default:
				out = append(out, b)
				last = b
			}
		case scanRunLength:
			for n := int(b) - 29; n > 0; n-- {
				out = append(out, last)
			}
			state = scanNormal
		case scanEscape:
			last = b ^ 0x20
			out = append(out, last)
			state = scanNormal
		}
	}
	return out
}
