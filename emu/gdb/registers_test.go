package gdb

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func slot(reply string, i int) string {
	return reply[i*regHexLen : (i+1)*regHexLen]
}

func TestReadRegisters(t *testing.T) {
	tgt := newFakeTarget()
	tgt.regs[1] = 1
	tgt.regs[31] = 0x1122334455667788
	tgt.regs[NativePC] = 0x400000
	tgt.regs[NativeF0] = 0xdead // not part of 'g'

	s := newTestSession(tgt, Options{})
	replies := roundTrip(t, s, "g")
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	reply := replies[0]
	if len(reply) != gdbGPRSlots*regHexLen {
		t.Fatalf("reply length = %d, want %d", len(reply), gdbGPRSlots*regHexLen)
	}

	want := map[int]string{
		0:  "0000000000000000",
		1:  "0100000000000000",
		2:  "0000000000000000",
		31: "8877665544332211",
		32: "0000400000000000",
	}
	for i, w := range want {
		if got := slot(reply, i); got != w {
			t.Errorf("slot %d = %s, want %s", i, got, w)
		}
	}
}

func TestReadRegistersDetached(t *testing.T) {
	s := newTestSession(nil, Options{})
	replies := roundTrip(t, s, "g")
	want := []string{strings.Repeat("0", gdbGPRSlots*regHexLen)}
	if diff := cmp.Diff(want, replies); diff != "" {
		t.Fatalf("g mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRegisters(t *testing.T) {
	tgt := newFakeTarget()
	tgt.regs[NativeF0] = 42
	tgt.regs[NativeSCause] = 7

	var sb strings.Builder
	sb.WriteString("ffffffffffffffff") // zero register, ignored
	for i := 1; i <= 31; i++ {
		sb.Write(appendReg(nil, uint64(i)*0x100))
	}
	sb.Write(appendReg(nil, 0x80000000)) // pc

	s := newTestSession(tgt, Options{})
	replies := roundTrip(t, s, "G"+sb.String())
	if diff := cmp.Diff([]string{"OK"}, replies); diff != "" {
		t.Fatalf("G reply mismatch (-want +got):\n%s", diff)
	}

	var want RegisterFile
	want[NativePC] = 0x80000000
	for i := 1; i <= 31; i++ {
		want[i] = uint64(i) * 0x100
	}
	want[NativeF0] = 42
	want[NativeSCause] = 7
	if diff := cmp.Diff(want, tgt.regs); diff != "" {
		t.Fatalf("registers mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRegistersErrors(t *testing.T) {
	tests := []struct {
		name string
		tgt  Target
		blob string
		want string
	}{
		{"short", newFakeTarget(), strings.Repeat("0", 32*regHexLen), "E01"},
		{"not hex", newFakeTarget(), strings.Repeat("0", 16) + strings.Repeat("zz", 32*8), "E01"},
		{"detached", nil, strings.Repeat("0", 33*regHexLen), "E03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(tt.tgt, Options{})
			replies := roundTrip(t, s, "G"+tt.blob)
			if diff := cmp.Diff([]string{tt.want}, replies); diff != "" {
				t.Fatalf("G reply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadRegister(t *testing.T) {
	tgt := newFakeTarget()
	for i := range tgt.regs {
		tgt.regs[i] = uint64(i) + 1
	}

	tests := []struct {
		cmd  string
		want string
	}{
		{"p0", "0000000000000000"},  // zero register
		{"p1", "0200000000000000"},  // x1
		{"p1f", "2000000000000000"}, // x31
		{"p20", "0100000000000000"}, // pc, native 0
		{"p21", "2100000000000000"}, // f0, native 32
		{"pa", "0b00000000000000"},  // no delimiter between command and index
		{"p41", "4100000000000000"}, // last handled register, native 64
		{"p42", "E02"},
		{"pzz", "E01"},
		{"p", "E01"},
	}

	s := newTestSession(tgt, Options{})
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			replies := roundTrip(t, s, tt.cmd)
			if diff := cmp.Diff([]string{tt.want}, replies); diff != "" {
				t.Fatalf("%s mismatch (-want +got):\n%s", tt.cmd, diff)
			}
		})
	}
}

func TestWriteRegister(t *testing.T) {
	tests := []struct {
		cmd    string
		native int
		want   uint64
	}{
		{"P5=efbeadde00000000", 5, 0xdeadbeef},
		{"P20=0000001000000000", NativePC, 0x10000000},
		{"P21=0100000000000000", NativeF0, 1},
		{"P41=ff", NativeFCSR, 0xff},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			tgt := newFakeTarget()
			s := newTestSession(tgt, Options{})
			replies := roundTrip(t, s, tt.cmd)
			if diff := cmp.Diff([]string{"OK"}, replies); diff != "" {
				t.Fatalf("reply mismatch (-want +got):\n%s", diff)
			}
			if got := tgt.regs[tt.native]; got != tt.want {
				t.Fatalf("native[%d] = %#x, want %#x", tt.native, got, tt.want)
			}
		})
	}

	t.Run("zero register", func(t *testing.T) {
		tgt := newFakeTarget()
		s := newTestSession(tgt, Options{})
		replies := roundTrip(t, s, "P0=0100000000000000")
		if diff := cmp.Diff([]string{"OK"}, replies); diff != "" {
			t.Fatalf("reply mismatch (-want +got):\n%s", diff)
		}
		if tgt.regs != (RegisterFile{}) {
			t.Fatalf("writing the zero register modified the register file")
		}
	})

	t.Run("errors", func(t *testing.T) {
		s := newTestSession(newFakeTarget(), Options{})
		for cmd, want := range map[string]string{
			"P5":        "E01",
			"P5=xyz0":   "E01",
			"P99=00":    "E02",
			"P5=" + strings.Repeat("00", 9): "E01",
		} {
			replies := roundTrip(t, s, cmd)
			if diff := cmp.Diff([]string{want}, replies); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", cmd, diff)
			}
		}
	})
}

func TestRegisterHex(t *testing.T) {
	if got := string(appendReg(nil, 1)); got != "0100000000000000" {
		t.Fatalf("appendReg(1) = %s", got)
	}
	v, err := parseReg("0100000000000000")
	if err != nil || v != 1 {
		t.Fatalf("parseReg = %#x, %v, want 1", v, err)
	}
}
