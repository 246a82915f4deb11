package debugger

import (
	"errors"
	"io"
)

func OpenSerial(dev string, baud int) (io.ReadWriteCloser, error) {
	return nil, errors.New("serial transport is not supported on windows")
}
