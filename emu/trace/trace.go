// Package trace records the packets exchanged with the debugger as JSON
// lines.
package trace

import (
	"encoding/hex"
	"io"
	"time"
	"unicode/utf8"

	"github.com/go-faster/jx"

	"rawrsgdb/emu/gdb"
	"rawrsgdb/emu/log"
)

// Writer is a gdb.Tracer writing one JSON object per packet:
//
//	{"seq":3,"t":"12:04:05.120","dir":"in","payload":"qSupported"}
//
// Payloads that are not valid UTF-8 are written hex-encoded under "hex".
type Writer struct {
	w   io.Writer
	enc jx.Encoder
	seq uint64

	now func() time.Time
}

var _ gdb.Tracer = (*Writer)(nil)

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, now: time.Now}
}

func (tw *Writer) TracePacket(dir gdb.Direction, payload []byte) {
	tw.seq++

	e := &tw.enc
	e.Reset()
	e.ObjStart()
	e.FieldStart("seq")
	e.UInt64(tw.seq)
	e.FieldStart("t")
	e.Str(tw.now().Format("15:04:05.000"))
	e.FieldStart("dir")
	e.Str(dir.String())
	if utf8.Valid(payload) {
		e.FieldStart("payload")
		e.Str(string(payload))
	} else {
		e.FieldStart("hex")
		e.Str(hex.EncodeToString(payload))
	}
	e.ObjEnd()

	if _, err := tw.w.Write(append(e.Bytes(), '\n')); err != nil {
		log.ModGDB.WarnZ("failed to write packet trace").Error("err", err).End()
	}
}
