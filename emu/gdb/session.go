package gdb

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"rawrsgdb/emu/log"
)

// State is the connection state of a Session.
type State uint8

const (
	Disconnected State = iota
	AwaitingFirstStop
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case AwaitingFirstStop:
		return "awaiting-first-stop"
	case Connected:
		return "connected"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Direction of a traced packet.
type Direction uint8

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "in"
	}
	return "out"
}

// A Tracer is shown every decoded payload going through a session.
type Tracer interface {
	TracePacket(dir Direction, payload []byte)
}

// Returned by handlers to act on the session itself.
var (
	ErrDetach = errors.New("gdb: detach")
	ErrKill   = errors.New("gdb: kill")

	// errDeferred marks commands whose reply is a later stop notification.
	errDeferred = errors.New("gdb: reply deferred")
)

const supportedFeatures = "PacketSize=256;swbreak+;hwbreak+;qXfer:exec-file:read+;vFile:open+"

// DefaultExecFile is the name reported for qXfer:exec-file:read.
const DefaultExecFile = "/rawrs.elf"

type Options struct {
	// Strict rejects packets with a bad checksum instead of accepting them.
	Strict bool
	// NoAck disables the '+' sent ahead of every reply.
	NoAck bool
	// ExecFile is reported to gdb as the executable path.
	ExecFile string
	// OpenAllowed decides vFile:open, given the hex-encoded path.
	OpenAllowed func(pathHex string) bool
	Tracer      Tracer
}

// A Session speaks RSP with one debugger on behalf of one target.
//
// A Session is not safe for concurrent use: all calls must be serialized by
// the owner, which feeds it the bytes read from the debugger and writes back
// what Output returns.
type Session struct {
	opts   Options
	codec  Codec
	target Target
	disp   *Dispatcher
	bps    *Breakpoints

	state State
	in    []byte
	out   []byte
	last  []byte // last packet sent, for '-' retransmission requests
}

// NewSession returns a disconnected session controlling t. t may be nil
// until a simulator is attached.
func NewSession(t Target, opts Options) *Session {
	if opts.ExecFile == "" {
		opts.ExecFile = DefaultExecFile
	}
	if opts.OpenAllowed == nil {
		opts.OpenAllowed = DefaultOpenAllowed
	}
	s := &Session{
		opts:   opts,
		codec:  Codec{Strict: opts.Strict},
		target: t,
		disp:   NewDispatcher(),
		bps:    newBreakpoints(),
	}
	s.registerHandlers()
	return s
}

func fixed(reply string) HandlerFunc {
	return func(string) (string, error) { return reply, nil }
}

func (s *Session) registerHandlers() {
	d := s.disp

	d.Handle("?", s.haltReason)
	d.Handle("qSupported", fixed(supportedFeatures))
	d.Handle("qAttached", fixed("1"))
	d.Handle("qC", fixed("QC 1"))
	d.Handle("qTStatus", fixed("T0;tnotrun:0"))
	d.Handle("qfThreadInfo", fixed("1"))
	d.Handle("qsThreadInfo", fixed("l"))
	d.Handle("Hc", fixed("OK"))
	d.Handle("Hg", fixed("OK"))
	d.Handle("qXfer", func(args string) (string, error) {
		return execFileXfer(s.opts.ExecFile, args)
	})
	d.Handle("vFile", func(args string) (string, error) {
		return hostIO(s.target, s.opts.OpenAllowed, args)
	})

	d.Handle("g", func(string) (string, error) {
		return readRegisters(s.target), nil
	})
	d.Handle("G", func(args string) (string, error) {
		return "OK", writeRegisters(s.target, args)
	})
	d.Handle("p", func(args string) (string, error) {
		return readRegister(s.target, args)
	})
	d.Handle("P", func(args string) (string, error) {
		return "OK", writeRegister(s.target, args)
	})
	d.Handle("m", func(args string) (string, error) {
		return readMemory(s.target, args)
	})
	d.Handle("M", func(args string) (string, error) {
		return "", writeMemory(s.target, args)
	})
	d.Handle("Z", s.insertBreakpoint)
	d.Handle("z", s.removeBreakpoint)

	d.Handle("s", s.resume("s", Target.Step))
	d.Handle("c", s.resume("c", Target.Continue))
	d.Handle("D", func(string) (string, error) { return "OK", ErrDetach })
	d.Handle("k", func(string) (string, error) { return "", ErrKill })
}

func (s *Session) haltReason(string) (string, error) {
	s.state = Connected
	return stopReply(SIGTRAP), nil
}

func (s *Session) insertBreakpoint(args string) (string, error) {
	addr, err := parseBreakpoint("Z", args)
	if err != nil {
		return "", err
	}
	s.bps.Insert(s.target, addr)
	return "OK", nil
}

func (s *Session) removeBreakpoint(args string) (string, error) {
	addr, err := parseBreakpoint("z", args)
	if err != nil {
		return "", err
	}
	s.bps.Remove(s.target, addr)
	return "OK", nil
}

// resume returns the handler for 's' and 'c'. An optional address argument
// moves the pc first. Without a target the stop is reported right away.
func (s *Session) resume(cmd string, run func(Target)) HandlerFunc {
	return func(args string) (string, error) {
		if s.target == nil {
			return stopReply(SIGTRAP), nil
		}
		if args != "" {
			addr, err := strconv.ParseUint(args, 16, 64)
			if err != nil {
				return "", invalidArg(cmd, err)
			}
			regs := s.target.Registers()
			regs[NativePC] = addr
			s.target.SetRegisters(regs)
		}
		run(s.target)
		return "", errDeferred
	}
}

func stopReply(sig uint8) string {
	return fmt.Sprintf("S%02x", sig)
}

// Attach sets the target the session controls. nil detaches it.
func (s *Session) Attach(t Target) {
	s.target = t
}

func (s *Session) State() State { return s.state }

// Breakpoints returns the active breakpoint addresses.
func (s *Session) Breakpoints() []uint64 { return s.bps.Addrs() }

// Open marks the debugging channel as open.
func (s *Session) Open() {
	if s.state == Disconnected {
		s.state = AwaitingFirstStop
	}
}

// Reset drops the connection state: buffered bytes are discarded and the
// breakpoints are removed from the target.
func (s *Session) Reset() {
	s.out = nil
	s.detach()
}

// detach is like Reset but keeps pending output so that a final reply can
// still be flushed.
func (s *Session) detach() {
	for _, addr := range s.bps.Addrs() {
		s.bps.Remove(s.target, addr)
	}
	s.state = Disconnected
	s.in = nil
	s.last = nil
}

// Feed appends bytes received from the debugger and processes every complete
// packet they contain.
func (s *Session) Feed(b []byte) {
	if s.state == Disconnected {
		log.ModGDB.DebugZ("dropping input on disconnected session").Int("len", len(b)).End()
		return
	}
	s.in = append(s.in, b...)
	s.Pump()
}

// Pump consumes buffered input until no more progress can be made, which
// happens once the buffer is empty or only holds an incomplete packet.
func (s *Session) Pump() {
	for s.state != Disconnected {
		n := len(s.in)
		s.consume()
		if len(s.in) == n {
			return
		}
	}
}

// Output returns the bytes to send to the debugger and clears them.
func (s *Session) Output() []byte {
	out := s.out
	s.out = nil
	return out
}

// NotifyStop reports an asynchronous stop of the target to the debugger.
func (s *Session) NotifyStop(sig uint8) {
	if s.state == Disconnected {
		return
	}
	s.state = Connected
	s.send(stopReply(sig), false)
}

// consume handles the control bytes ahead of the next packet, then the packet
// itself if it is complete.
func (s *Session) consume() {
	i := 0
	for ; i < len(s.in) && s.in[i] != pktStart; i++ {
		switch s.in[i] {
		case ackOK:
		case ackResend:
			if s.last != nil {
				s.out = append(s.out, s.last...)
			}
		case interrupt:
			s.interrupt()
		default:
			log.ModGDB.DebugZ("discarding stray byte").Hex8("byte", s.in[i]).End()
		}
	}
	s.in = s.in[i:]
	if len(s.in) == 0 {
		return
	}

	end := bytes.IndexByte(s.in, pktEnd)
	if end < 0 || end+3 > len(s.in) {
		return
	}
	// A second start marker means the first packet was cut short.
	if restart := bytes.LastIndexByte(s.in[1:end], pktStart); restart >= 0 {
		s.in = s.in[restart+1:]
		return
	}

	pkt := s.in[:end+3]
	s.in = s.in[end+3:]
	s.handlePacket(pkt)
}

func (s *Session) handlePacket(pkt []byte) {
	payload, err := s.codec.Decode(pkt)
	if err != nil {
		log.ModGDB.WarnZ("dropping packet").Error("err", err).End()
		if errors.Is(err, ErrChecksum) {
			s.out = append(s.out, ackResend)
		}
		return
	}
	if s.opts.Tracer != nil {
		s.opts.Tracer.TracePacket(Inbound, payload)
	}

	reply, err := s.disp.Dispatch(string(payload))
	switch {
	case errors.Is(err, errDeferred):
		if !s.opts.NoAck {
			s.out = append(s.out, ackOK)
		}
	case errors.Is(err, ErrKill):
		s.Reset()
	case errors.Is(err, ErrDetach):
		s.send(reply, true)
		s.detach()
	case err != nil:
		log.ModGDB.WarnZ("command failed").Error("err", err).End()
		s.send(errorReply(err), true)
	default:
		s.send(reply, true)
	}
}

func (s *Session) send(payload string, ack bool) {
	if s.opts.Tracer != nil {
		s.opts.Tracer.TracePacket(Outbound, []byte(payload))
	}
	pkt := s.codec.Encode([]byte(payload), ack && !s.opts.NoAck)
	s.out = append(s.out, pkt...)
	if pkt[0] == ackOK {
		pkt = pkt[1:]
	}
	s.last = pkt
}

func (s *Session) interrupt() {
	log.ModGDB.DebugZ("interrupt requested").End()
	if s.target == nil {
		s.NotifyStop(SIGINT)
		return
	}
	s.target.Pause()
}
