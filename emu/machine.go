package emu

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"rawrsgdb/emu/gdb"
	"rawrsgdb/emu/log"
)

type Status int32

const (
	Idle Status = iota
	Running
	Stepping
	Halted
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stepping:
		return "stepping"
	case Halted:
		return "halted"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// StopReason tells why execution stopped.
type StopReason uint8

const (
	StopStep StopReason = iota
	StopBreakpoint
	StopPause
	StopOutOfBinary
	StopStepLimit
)

func (r StopReason) String() string {
	switch r {
	case StopStep:
		return "step"
	case StopBreakpoint:
		return "breakpoint"
	case StopPause:
		return "pause"
	case StopOutOfBinary:
		return "out of binary"
	case StopStepLimit:
		return "step limit"
	}
	return "StopReason(" + strconv.Itoa(int(r)) + ")"
}

// Stop describes the end of a step or continue.
type Stop struct {
	Reason StopReason
	PC     uint64
	Steps  uint64
}

// Signal returns the signal number reported to the debugger.
func (s Stop) Signal() uint8 {
	if s.Reason == StopPause {
		return gdb.SIGINT
	}
	return gdb.SIGTRAP
}

type command uint8

const (
	cmdStep command = iota
	cmdContinue
	cmdPause
)

// Machine is a RISC-V hart with a pseudo-execution model: instructions are
// fetched and sized but not executed.
//
// Step, Continue and Pause can be called from any goroutine. Execution happens
// in the goroutine calling Run, which is also the one calling the stop
// listener.
type Machine struct {
	cfg MachineConfig

	mu   sync.Mutex
	regs gdb.RegisterFile
	mem  *Memory
	bin  *Binary
	bps  map[uint64]struct{}

	cmds   chan command
	status atomic.Int32
	paused atomic.Bool
	quit   atomic.Bool
	done   chan struct{}

	onStop func(Stop)
}

var _ gdb.Target = (*Machine)(nil)

func NewMachine(cfg MachineConfig) *Machine {
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = math.MaxUint64
	}
	m := &Machine{
		cfg:  cfg,
		mem:  NewMemory(),
		bps:  make(map[uint64]struct{}),
		cmds: make(chan command, 16),
		done: make(chan struct{}),
	}
	return m
}

// AddLogContext adds the current pc to every log entry.
func (m *Machine) AddLogContext(entry *log.EntryZ) {
	if m.mu.TryLock() {
		defer m.mu.Unlock()
		entry.Hex64("pc", m.regs[gdb.NativePC])
	}
}

// Load resets memory and registers and loads bin. Breakpoints are kept.
func (m *Machine) Load(bin *Binary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bin = bin
	m.mem.Reset()
	m.regs = gdb.RegisterFile{}
	bin.load(m.mem)
	m.regs[gdb.NativePC] = bin.Entry
	m.regs[regSP] = m.cfg.StackTop

	log.ModEmu.InfoZ("binary loaded").
		String("path", bin.Path).
		Hex64("entry", bin.Entry).
		Int("segments", len(bin.Segments)).
		End()
}

const regSP = 2

// OnStop registers the function called whenever execution stops. It must be
// called before Run.
func (m *Machine) OnStop(fn func(Stop)) { m.onStop = fn }

func (m *Machine) Status() Status { return Status(m.status.Load()) }

func (m *Machine) PC() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[gdb.NativePC]
}

// Run executes commands until ctx is cancelled or Quit is called.
func (m *Machine) Run(ctx context.Context) error {
	defer close(m.done)
	defer m.setStatus(Halted)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-m.cmds:
			if m.quit.Load() {
				return nil
			}
			m.exec(ctx, cmd)
		}
		if m.quit.Load() {
			log.ModEmu.InfoZ("Emulation loop exited").End()
			return nil
		}
	}
}

// Quit stops the run loop, interrupting any ongoing continue.
func (m *Machine) Quit() {
	m.quit.Store(true)
	m.paused.Store(true)
	m.post(cmdPause)
}

// Done is closed once Run has returned.
func (m *Machine) Done() <-chan struct{} { return m.done }

func (m *Machine) Step()     { m.post(cmdStep) }
func (m *Machine) Continue() { m.post(cmdContinue) }

// Pause interrupts a continue. If the machine is idle the stop is reported
// right away.
func (m *Machine) Pause() {
	m.paused.Store(true)
	m.post(cmdPause)
}

func (m *Machine) post(cmd command) {
	select {
	case m.cmds <- cmd:
	default:
		log.ModEmu.WarnZ("command queue full, dropping command").Int("cmd", int(cmd)).End()
	}
}

func (m *Machine) setStatus(s Status) { m.status.Store(int32(s)) }

func (m *Machine) exec(ctx context.Context, cmd command) {
	switch cmd {
	case cmdStep:
		m.setStatus(Stepping)
		m.mu.Lock()
		m.step()
		pc := m.regs[gdb.NativePC]
		m.mu.Unlock()
		m.stop(Stop{Reason: StopStep, PC: pc, Steps: 1})

	case cmdContinue:
		m.setStatus(Running)
		m.stop(m.run(ctx))

	case cmdPause:
		// Only report a pause that no continue has consumed.
		if m.paused.CompareAndSwap(true, false) {
			m.stop(Stop{Reason: StopPause, PC: m.PC()})
		}
	}
}

// run steps until something stops execution.
func (m *Machine) run(ctx context.Context) Stop {
	var steps uint64
	for {
		if m.paused.CompareAndSwap(true, false) {
			return Stop{Reason: StopPause, PC: m.PC(), Steps: steps}
		}
		if steps&0xfff == 0 && ctx.Err() != nil {
			return Stop{Reason: StopPause, PC: m.PC(), Steps: steps}
		}

		m.mu.Lock()
		m.step()
		steps++
		pc := m.regs[gdb.NativePC]
		_, isbp := m.bps[pc]
		inside := m.bin == nil || m.bin.Contains(pc)
		m.mu.Unlock()

		switch {
		case isbp:
			return Stop{Reason: StopBreakpoint, PC: pc, Steps: steps}
		case !inside:
			return Stop{Reason: StopOutOfBinary, PC: pc, Steps: steps}
		case steps >= m.cfg.MaxSteps:
			return Stop{Reason: StopStepLimit, PC: pc, Steps: steps}
		}
	}
}

// step advances pc past the current instruction. m.mu must be held.
func (m *Machine) step() {
	pc := m.regs[gdb.NativePC]
	m.regs[gdb.NativePC] = pc + insnLen(m.mem.Read16(pc))
}

// insnLen returns the length of the instruction starting with the 16-bit
// parcel lo. Encodings longer than 32 bits are not supported.
func insnLen(lo uint16) uint64 {
	if lo&0b11 != 0b11 {
		return 2
	}
	return 4
}

func (m *Machine) stop(s Stop) {
	m.setStatus(Idle)
	log.ModEmu.DebugZ("execution stopped").
		Stringer("reason", s.Reason).
		Hex64("pc", s.PC).
		Uint("steps", s.Steps).
		End()
	if m.onStop != nil {
		m.onStop(s)
	}
}

/* gdb.Target implementation */

func (m *Machine) Registers() gdb.RegisterFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs
}

func (m *Machine) SetRegisters(regs gdb.RegisterFile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs = regs
}

func (m *Machine) ReadMemory(addr, length uint64) ([]byte, error) {
	if addr+length < addr {
		return nil, fmt.Errorf("read [%#x, +%#x) wraps around", addr, length)
	}
	buf := make([]byte, length)
	m.mu.Lock()
	m.mem.Read(addr, buf)
	m.mu.Unlock()
	return buf, nil
}

func (m *Machine) WriteMemory(addr uint64, data []byte) error {
	if addr+uint64(len(data)) < addr {
		return fmt.Errorf("write [%#x, +%#x) wraps around", addr, len(data))
	}
	m.mu.Lock()
	m.mem.Write(addr, data)
	m.mu.Unlock()
	return nil
}

func (m *Machine) BreakpointSet(addrHex string) {
	addr, err := strconv.ParseUint(addrHex, 16, 64)
	if err != nil {
		log.ModEmu.WarnZ("invalid breakpoint address").String("addr", addrHex).End()
		return
	}
	m.mu.Lock()
	m.bps[addr] = struct{}{}
	m.mu.Unlock()
}

func (m *Machine) BreakpointClear(addrHex string) {
	addr, err := strconv.ParseUint(addrHex, 16, 64)
	if err != nil {
		log.ModEmu.WarnZ("invalid breakpoint address").String("addr", addrHex).End()
		return
	}
	m.mu.Lock()
	delete(m.bps, addr)
	m.mu.Unlock()
}

func (m *Machine) BinaryData() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bin == nil {
		return nil
	}
	return m.bin.Raw()
}
