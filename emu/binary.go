package emu

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
)

// A Segment is a loadable region of an executable.
type Segment struct {
	Addr  uint64
	Size  uint64 // size in memory
	Flags elf.ProgFlag
	data  []byte
}

func (s Segment) Contains(addr uint64) bool {
	return addr >= s.Addr && addr-s.Addr < s.Size
}

// Binary is a RISC-V ELF executable ready to be loaded into a Machine.
type Binary struct {
	Path     string
	Class    elf.Class
	Machine  elf.Machine
	Entry    uint64
	Segments []Segment

	raw []byte
}

var ErrNotRISCV = errors.New("not a RISC-V executable")

// LoadBinary reads and parses the ELF file at path.
func LoadBinary(path string) (*Binary, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	bin, err := ParseBinary(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	bin.Path = path
	return bin, nil
}

// ParseBinary parses an in-memory ELF image.
func ParseBinary(buf []byte) (*Binary, error) {
	f, err := elf.NewFile(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w: machine is %v", ErrNotRISCV, f.Machine)
	}

	bin := &Binary{
		Class:   f.Class,
		Machine: f.Machine,
		Entry:   f.Entry,
		raw:     buf,
	}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		if prog.Filesz > prog.Memsz {
			return nil, fmt.Errorf("segment at %#x: file size %d exceeds memory size %d", prog.Vaddr, prog.Filesz, prog.Memsz)
		}
		data, err := io.ReadAll(prog.Open())
		if err != nil {
			return nil, fmt.Errorf("segment at %#x: %w", prog.Vaddr, err)
		}
		bin.Segments = append(bin.Segments, Segment{
			Addr:  prog.Vaddr,
			Size:  prog.Memsz,
			Flags: prog.Flags,
			data:  data,
		})
	}
	if len(bin.Segments) == 0 {
		return nil, errors.New("no loadable segment")
	}
	return bin, nil
}

// Raw returns the file content.
func (b *Binary) Raw() []byte { return b.raw }

// Contains reports whether addr belongs to a loadable segment.
func (b *Binary) Contains(addr uint64) bool {
	for _, s := range b.Segments {
		if s.Contains(addr) {
			return true
		}
	}
	return false
}

func (b *Binary) load(mem *Memory) {
	for _, s := range b.Segments {
		mem.Write(s.Addr, s.data)
		// .bss
		if pad := s.Size - uint64(len(s.data)); pad > 0 {
			mem.Write(s.Addr+uint64(len(s.data)), make([]byte, pad))
		}
	}
}
