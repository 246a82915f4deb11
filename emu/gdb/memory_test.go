package gdb

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadMemory(t *testing.T) {
	tgt := newFakeTarget()
	tgt.WriteMemory(0x1000, []byte{0x11, 0x22, 0x33, 0x44})

	tests := []struct {
		tgt  Target
		cmd  string
		want string
	}{
		{tgt, "m1000,4", "11223344"},
		{tgt, "m1002,4", "33440000"},
		{tgt, "m1000,0", ""},
		{nil, "m1000,4", "00000000"},
		{tgt, "m1000", "E01"},
		{tgt, "mxyz,4", "E01"},
		{tgt, "m1000,q", "E01"},
		{tgt, "m0,100000", "E02"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			s := newTestSession(tt.tgt, Options{})
			replies := roundTrip(t, s, tt.cmd)
			if diff := cmp.Diff([]string{tt.want}, replies); diff != "" {
				t.Fatalf("%s mismatch (-want +got):\n%s", tt.cmd, diff)
			}
		})
	}
}

type failingMemory struct{ *fakeTarget }

func (failingMemory) ReadMemory(uint64, uint64) ([]byte, error) {
	return nil, errors.New("bus error")
}

func TestReadMemoryTargetFailure(t *testing.T) {
	s := newTestSession(failingMemory{newFakeTarget()}, Options{})
	replies := roundTrip(t, s, "m0,4")
	if diff := cmp.Diff([]string{"E04"}, replies); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteMemory(t *testing.T) {
	tgt := newFakeTarget()
	s := newTestSession(tgt, Options{})

	replies := roundTrip(t, s, "M2000,3:a1b2c3")
	if diff := cmp.Diff([]string{""}, replies); diff != "" {
		t.Fatalf("M reply mismatch (-want +got):\n%s", diff)
	}
	got, _ := tgt.ReadMemory(0x2000, 3)
	if diff := cmp.Diff([]byte{0xa1, 0xb2, 0xc3}, got); diff != "" {
		t.Fatalf("memory mismatch (-want +got):\n%s", diff)
	}

	errs := map[string]string{
		"M2000,3":        "E01",
		"M2000,3:a1b2":   "E01",
		"M2000,2:zzzz":   "E01",
		"Mqq,2:0000":     "E01",
		"M0,100000:0000": "E02",
	}
	for cmd, want := range errs {
		replies := roundTrip(t, s, cmd)
		if diff := cmp.Diff([]string{want}, replies); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", cmd, diff)
		}
	}

	detached := newTestSession(nil, Options{})
	replies = roundTrip(t, detached, "M2000,1:00")
	if diff := cmp.Diff([]string{"E03"}, replies); diff != "" {
		t.Fatalf("detached M mismatch (-want +got):\n%s", diff)
	}
}
