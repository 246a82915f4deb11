package gdb

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the errors a single command can fail with.
type ErrorKind uint8

const (
	InvalidArgument ErrorKind = iota + 1 // non-hex or missing argument
	OutOfRange                           // register index or length out of bounds
	TargetUnavailable                    // no simulator attached
	TargetFailure                        // the simulator reported an error
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case OutOfRange:
		return "out of range"
	case TargetUnavailable:
		return "target unavailable"
	case TargetFailure:
		return "target failure"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// A ProtocolError aborts the command it was raised for. The session goes on.
type ProtocolError struct {
	Kind ErrorKind
	Cmd  string
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Cmd, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Cmd, e.Kind, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Reply is the 'Exx' error packet sent back to gdb.
func (e *ProtocolError) Reply() string {
	return fmt.Sprintf("E%02x", uint8(e.Kind))
}

func invalidArg(cmd string, err error) error {
	return &ProtocolError{Kind: InvalidArgument, Cmd: cmd, Err: err}
}

func outOfRange(cmd string, format string, args ...any) error {
	return &ProtocolError{Kind: OutOfRange, Cmd: cmd, Err: fmt.Errorf(format, args...)}
}

func unavailable(cmd string) error {
	return &ProtocolError{Kind: TargetUnavailable, Cmd: cmd}
}

func targetFailure(cmd string, err error) error {
	return &ProtocolError{Kind: TargetFailure, Cmd: cmd, Err: err}
}

// errorReply converts err into the reply payload for the failed command.
func errorReply(err error) string {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return perr.Reply()
	}
	return "E." + err.Error()
}
