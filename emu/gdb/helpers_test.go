package gdb

import (
	"bytes"
	"fmt"
	"testing"
)

// fakeTarget records every call made by the session.
type fakeTarget struct {
	regs RegisterFile
	mem  map[uint64]byte
	bin  []byte

	sets   []string
	clears []string
	steps  int
	conts  int
	pauses int
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{mem: make(map[uint64]byte)}
}

func (f *fakeTarget) Registers() RegisterFile        { return f.regs }
func (f *fakeTarget) SetRegisters(regs RegisterFile) { f.regs = regs }

func (f *fakeTarget) ReadMemory(addr, length uint64) ([]byte, error) {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = f.mem[addr+uint64(i)]
	}
	return buf, nil
}

func (f *fakeTarget) WriteMemory(addr uint64, data []byte) error {
	for i, b := range data {
		f.mem[addr+uint64(i)] = b
	}
	return nil
}

func (f *fakeTarget) BreakpointSet(addrHex string)   { f.sets = append(f.sets, addrHex) }
func (f *fakeTarget) BreakpointClear(addrHex string) { f.clears = append(f.clears, addrHex) }
func (f *fakeTarget) BinaryData() []byte             { return f.bin }
func (f *fakeTarget) Step()                          { f.steps++ }
func (f *fakeTarget) Continue()                      { f.conts++ }
func (f *fakeTarget) Pause()                         { f.pauses++ }

// frame builds a packet with a valid checksum around an already escaped
// payload.
func frame(raw string) string {
	return fmt.Sprintf("$%s#%02x", raw, Checksum([]byte(raw)))
}

// newTestSession returns an open session with acks disabled so that replies
// can be compared as bare packets.
func newTestSession(t Target, opts Options) *Session {
	opts.NoAck = true
	s := NewSession(t, opts)
	s.Open()
	return s
}

// roundTrip sends one payload and returns the decoded reply payloads.
func roundTrip(tb testing.TB, s *Session, payload string) []string {
	tb.Helper()
	s.Feed(Codec{}.Encode([]byte(payload), false))
	return splitReplies(tb, s.Output())
}

// splitReplies decodes every packet found in out.
func splitReplies(tb testing.TB, out []byte) []string {
	tb.Helper()
	var replies []string
	for len(out) > 0 {
		start := bytes.IndexByte(out, pktStart)
		if start < 0 {
			break
		}
		end := bytes.IndexByte(out[start:], pktEnd)
		if end < 0 || start+end+3 > len(out) {
			tb.Fatalf("incomplete packet in output %q", out)
		}
		pkt := out[start : start+end+3]
		payload, err := Codec{}.Decode(pkt)
		if err != nil {
			tb.Fatalf("Decode(%q): %v", pkt, err)
		}
		replies = append(replies, string(payload))
		out = out[start+end+3:]
	}
	return replies
}
