package log

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type fieldKind uint8

const (
	kindNone fieldKind = iota
	kindBool
	kindString
	kindInt
	kindUint
	kindHex // Num rendered as Width hex digits
	kindDuration
	kindError
	kindStringer
	kindBlob
)

// A ZField is a key/value pair attached to an EntryZ. Scalars live in Num,
// strings in Str, anything else in Ref, so that adding a field to the entry
// buffer never allocates.
type ZField struct {
	Key   string
	kind  fieldKind
	Width uint8
	Num   uint64
	Str   string
	Ref   any
}

func hexField(key string, v uint64, width uint8) ZField {
	return ZField{Key: key, kind: kindHex, Width: width, Num: v}
}

// Value renders the field value for the log line.
func (f *ZField) Value() string {
	switch f.kind {
	case kindBool:
		return strconv.FormatBool(f.Num != 0)
	case kindString:
		return f.Str
	case kindInt:
		return strconv.FormatInt(int64(f.Num), 10)
	case kindUint:
		return strconv.FormatUint(f.Num, 10)
	case kindHex:
		s := strconv.FormatUint(f.Num, 16)
		if pad := int(f.Width) - len(s); pad > 0 {
			s = strings.Repeat("0", pad) + s
		}
		return s
	case kindDuration:
		return time.Duration(f.Num).String()
	case kindError, kindStringer:
		if f.Ref == nil {
			return "<nil>"
		}
		return f.Ref.(fmt.Stringer).String()
	case kindBlob:
		return hex.EncodeToString(f.Ref.([]byte))
	}
	return ""
}

// errorString lets an error be rendered as a Stringer.
type errorString struct{ error }

func (e errorString) String() string { return e.Error() }
