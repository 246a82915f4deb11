package gdb

import (
	"errors"

	"rawrsgdb/emu/log"
)

// A HandlerFunc handles one command. args is the payload that follows the
// matched mnemonic.
type HandlerFunc func(args string) (string, error)

// A Dispatcher routes decoded payloads to handlers by mnemonic, using the
// longest registered prefix of the mnemonic. gdb doesn't always put a
// delimiter between a command and its arguments ("pa" reads register 10),
// so "pa" falls back to the "p" handler when no "pa" handler exists.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Handle registers h for mnemonic, replacing any previous handler.
func (d *Dispatcher) Handle(mnemonic string, h HandlerFunc) {
	d.handlers[mnemonic] = h
}

// Mnemonic returns the command part of payload: "?" or the leading run of
// ASCII letters.
func Mnemonic(payload string) string {
	if len(payload) > 0 && payload[0] == '?' {
		return "?"
	}
	i := 0
	for i < len(payload) && isLetter(payload[i]) {
		i++
	}
	return payload[:i]
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// lookup returns the handler registered for the longest prefix of mnemonic.
func (d *Dispatcher) lookup(mnemonic string) (HandlerFunc, string) {
	for m := mnemonic; m != ""; m = m[:len(m)-1] {
		if h, ok := d.handlers[m]; ok {
			return h, m
		}
	}
	return nil, ""
}

// Dispatch runs the handler for payload and returns the reply. Unsupported
// commands get an empty reply, commands failing with a *ProtocolError an
// error reply. Any other error is returned along with the reply, for the
// caller to act upon.
func (d *Dispatcher) Dispatch(payload string) (string, error) {
	h, m := d.lookup(Mnemonic(payload))
	if h == nil {
		log.ModGDB.DebugZ("unsupported command").String("payload", payload).End()
		return "", nil
	}

	reply, err := h(payload[len(m):])
	if err == nil {
		return reply, nil
	}
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		return reply, err
	}

	log.ModGDB.WarnZ("command failed").
		String("cmd", m).
		Error("err", err).
		End()
	return errorReply(err), nil
}
