package gdb

// NumRegisters is the size of the simulator's native register vector.
const NumRegisters = 68

// Native register indices. x0 is hardwired to zero so its slot holds the pc.
const (
	NativePC       = 0
	NativeF0       = 32
	NativeFCSR     = 64
	NativeSScratch = 65
	NativeSEPC     = 66
	NativeSCause   = 67
)

// RegisterFile is the simulator's native register vector.
type RegisterFile = [NumRegisters]uint64

// Target is the simulator under debug.
//
// Step and Continue only start execution; the resulting stop is reported
// later through Session.NotifyStop.
type Target interface {
	Registers() RegisterFile
	SetRegisters(RegisterFile)

	ReadMemory(addr, length uint64) ([]byte, error)
	WriteMemory(addr uint64, data []byte) error

	BreakpointSet(addrHex string)
	BreakpointClear(addrHex string)

	// BinaryData returns the raw bytes of the loaded executable, or nil.
	BinaryData() []byte

	Step()
	Continue()
	Pause()
}

// Signal numbers used in stop replies.
const (
	SIGINT  uint8 = 2
	SIGTRAP uint8 = 5
)
