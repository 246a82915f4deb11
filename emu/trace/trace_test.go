package trace

import (
	"bufio"
	"bytes"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/go-cmp/cmp"

	"rawrsgdb/emu/gdb"
)

type record struct {
	Seq     uint64
	T       string
	Dir     string
	Payload string
	Hex     string
}

func decode(t *testing.T, line []byte) record {
	t.Helper()

	var r record
	err := jx.DecodeBytes(line).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "seq":
			r.Seq, err = d.UInt64()
		case "t":
			r.T, err = d.Str()
		case "dir":
			r.Dir, err = d.Str()
		case "payload":
			r.Payload, err = d.Str()
		case "hex":
			r.Hex, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return r
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf)
	tw.now = func() time.Time { return time.Date(2024, 1, 1, 12, 4, 5, 120e6, time.UTC) }

	tw.TracePacket(gdb.Inbound, []byte("qSupported:swbreak+"))
	tw.TracePacket(gdb.Outbound, []byte(`F 2;"}`))
	tw.TracePacket(gdb.Outbound, []byte{'F', ' ', '1', ';', 0xff})

	var got []record
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		got = append(got, decode(t, sc.Bytes()))
	}

	want := []record{
		{Seq: 1, T: "12:04:05.120", Dir: "in", Payload: "qSupported:swbreak+"},
		{Seq: 2, T: "12:04:05.120", Dir: "out", Payload: `F 2;"}`},
		{Seq: 3, T: "12:04:05.120", Dir: "out", Hex: "4620313bff"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}
