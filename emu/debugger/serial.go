//go:build !windows

package debugger

import (
	"io"

	"github.com/pkg/term"
)

// OpenSerial opens a serial device in raw mode.
func OpenSerial(dev string, baud int) (io.ReadWriteCloser, error) {
	opts := []func(*term.Term) error{term.RawMode}
	if baud > 0 {
		opts = append(opts, term.Speed(baud))
	}
	t, err := term.Open(dev, opts...)
	if err != nil {
		return nil, err
	}
	return t, nil
}
