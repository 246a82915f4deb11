package gdb

import (
	"encoding/hex"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHostIO(t *testing.T) {
	tgt := newFakeTarget()
	tgt.bin = []byte("\x7fELF}#$*rest")

	tests := []struct {
		name string
		cmd  string
		want string
	}{
		{"setfs", "vFile:setfs:0", "F 0"},
		{"open absolute", "vFile:open:" + hex.EncodeToString([]byte("/rawrs.elf")) + ",0,1c0", "F 1"},
		{"open refused", "vFile:open:" + hex.EncodeToString([]byte("just/a.out")) + ",0,1c0", "F -1"},
		{"close", "vFile:close:1", "F 0"},
		{"pread head", "vFile:pread:1,4,0", "F 4;\x7fELF"},
		{"pread escaped", "vFile:pread:1,4,4", "F 4;}#$*"},
		{"pread clamped", "vFile:pread:1,100,8", "F 4;rest"},
		{"pread past end", "vFile:pread:1,10,100", "F 0;"},
		{"pread huge count", "vFile:pread:1,ffffffffffffffff,8", "F 4;rest"},
		{"pread bad args", "vFile:pread:1,4", "E01"},
		{"pread not hex", "vFile:pread:1,4,zz", "E01"},
		{"unknown op", "vFile:unlink:2f746d70", ""},
	}

	s := newTestSession(tgt, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replies := roundTrip(t, s, tt.cmd)
			if diff := cmp.Diff([]string{tt.want}, replies); diff != "" {
				t.Fatalf("%s mismatch (-want +got):\n%s", tt.cmd, diff)
			}
		})
	}
}

func TestHostPreadEscapedOnWire(t *testing.T) {
	tgt := newFakeTarget()
	tgt.bin = []byte{'}', '#'}
	s := newTestSession(tgt, Options{})

	s.Feed([]byte(frame("vFile:pread:1,2,0")))
	out := s.Output()
	pkt := Codec{}.Encode([]byte("F 2;}#"), false)
	if diff := cmp.Diff(string(pkt), string(out)); diff != "" {
		t.Fatalf("wire mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("$F 2;}]}\x03#", string(out[:len(out)-2])); diff != "" {
		t.Fatalf("escaping mismatch (-want +got):\n%s", diff)
	}
}

func TestHostPreadUnavailable(t *testing.T) {
	for name, tgt := range map[string]Target{
		"detached":  nil,
		"no binary": newFakeTarget(),
	} {
		s := newTestSession(tgt, Options{})
		replies := roundTrip(t, s, "vFile:pread:1,4,0")
		if diff := cmp.Diff([]string{"F -1"}, replies); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestOpenPredicate(t *testing.T) {
	allowAll := func(string) bool { return true }
	s := newTestSession(nil, Options{OpenAllowed: allowAll})
	replies := roundTrip(t, s, "vFile:open:"+hex.EncodeToString([]byte("a.out"))+",0,0")
	if diff := cmp.Diff([]string{"F 1"}, replies); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	if !DefaultOpenAllowed("2f") || DefaultOpenAllowed("61") {
		t.Fatalf("DefaultOpenAllowed refuses the wrong paths")
	}
}
