package log

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/Sirupsen/logrus.v0"
)

const maxZFields = 16

// EntryZ is a log entry builder that doesn't allocate while fields are being
// added. A nil *EntryZ is valid and discards everything, so callers can chain
// on a disabled level at no cost:
//
//	log.ModGDB.DebugZ("packet").String("cmd", cmd).End()
type EntryZ struct {
	mod Module
	lvl Level
	msg string

	zfbuf [maxZFields]ZField
	zfidx int
}

var entryPool = sync.Pool{
	New: func() any { return new(EntryZ) },
}

func NewEntryZ() *EntryZ {
	e := entryPool.Get().(*EntryZ)
	e.zfidx = 0
	return e
}

func (z *EntryZ) add(f ZField) *EntryZ {
	if z == nil || z.zfidx == maxZFields {
		return z
	}
	z.zfbuf[z.zfidx] = f
	z.zfidx++
	return z
}

func (z *EntryZ) Bool(key string, v bool) *EntryZ {
	return z.add(ZField{Key: key, kind: kindBool, Num: b2u(v)})
}

func (z *EntryZ) String(key, v string) *EntryZ {
	return z.add(ZField{Key: key, kind: kindString, Str: v})
}

func (z *EntryZ) Stringer(key string, v fmt.Stringer) *EntryZ {
	return z.add(ZField{Key: key, kind: kindStringer, Ref: v})
}

func (z *EntryZ) Int(key string, v int) *EntryZ {
	return z.add(ZField{Key: key, kind: kindInt, Num: uint64(v)})
}

func (z *EntryZ) Uint(key string, v uint64) *EntryZ {
	return z.add(ZField{Key: key, kind: kindUint, Num: v})
}

func (z *EntryZ) Hex8(key string, v uint8) *EntryZ {
	return z.add(hexField(key, uint64(v), 2))
}

func (z *EntryZ) Hex16(key string, v uint16) *EntryZ {
	return z.add(hexField(key, uint64(v), 4))
}

func (z *EntryZ) Hex32(key string, v uint32) *EntryZ {
	return z.add(hexField(key, uint64(v), 8))
}

func (z *EntryZ) Hex64(key string, v uint64) *EntryZ {
	return z.add(hexField(key, v, 16))
}

func (z *EntryZ) Error(key string, err error) *EntryZ {
	f := ZField{Key: key, kind: kindError}
	if err != nil {
		f.Ref = errorString{err}
	}
	return z.add(f)
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (z *EntryZ) Duration(key string, d time.Duration) *EntryZ {
	return z.add(ZField{Key: key, kind: kindDuration, Num: uint64(d)})
}

func (z *EntryZ) Blob(key string, b []byte) *EntryZ {
	return z.add(ZField{Key: key, kind: kindBlob, Ref: b})
}

// End emits the entry and releases it. The entry must not be used afterwards.
func (z *EntryZ) End() {
	if z == nil {
		return
	}

	// Context adders write into the same buffer, after the caller's fields.
	for _, c := range contexts {
		c.AddLogContext(z)
	}

	fields := make(logrus.Fields, z.zfidx+1)
	fields["_mod"] = z.mod.String()
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}
	entry := logrus.StandardLogger().WithFields(fields)

	switch z.lvl {
	case DebugLevel:
		entry.Debug(z.msg)
	case InfoLevel:
		entry.Info(z.msg)
	case WarnLevel:
		entry.Warn(z.msg)
	case ErrorLevel:
		entry.Error(z.msg)
	case FatalLevel:
		entry.Fatal(z.msg)
	case PanicLevel:
		z.release()
		entry.Panic(z.msg)
		return
	}
	z.release()
}

func (z *EntryZ) release() {
	for i := range z.zfbuf[:z.zfidx] {
		z.zfbuf[i] = ZField{}
	}
	z.zfidx = 0
	entryPool.Put(z)
}
