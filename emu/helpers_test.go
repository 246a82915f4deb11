package emu

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

const (
	testMachine = elf.EM_RISCV
	testEntry   = 0x10000
	testMemsz   = 0x100
)

// testCode is a mix of 4-byte and compressed instructions:
//
//	0x10000 addi a0, zero, 1   (4 bytes)
//	0x10004 c.nop              (2 bytes)
//	0x10006 c.nop              (2 bytes)
//	0x10008 ebreak             (4 bytes)
var testCode = []byte{
	0x13, 0x05, 0x10, 0x00,
	0x01, 0x00,
	0x01, 0x00,
	0x73, 0x00, 0x10, 0x00,
}

// buildELF returns a minimal 64-bit RISC-V executable holding a single
// loadable segment with code at vaddr.
func buildELF(t *testing.T, machine elf.Machine, entry, vaddr uint64, code []byte, memsz uint64) []byte {
	t.Helper()

	const (
		ehsize    = 64
		phentsize = 56
	)
	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     ehsize,
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     1,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	prog := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Off:    ehsize + phentsize,
		Vaddr:  vaddr,
		Paddr:  vaddr,
		Filesz: uint64(len(code)),
		Memsz:  memsz,
		Align:  4,
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		t.Fatal(err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, &prog); err != nil {
		t.Fatal(err)
	}
	buf.Write(code)
	return buf.Bytes()
}

func testBinary(t *testing.T) []byte {
	return buildELF(t, testMachine, testEntry, testEntry, testCode, testMemsz)
}

// writeELF writes buf into a temporary file and returns its path.
func writeELF(t *testing.T, buf []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.elf")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
