package emu

import (
	"rawrsgdb/emu/log"
)

const (
	pageBits = 12
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

type page [pageSize]byte

// Memory is a sparse, byte addressable 64-bit address space. Pages are
// allocated on first write; reading an unmapped page yields zeroes.
type Memory struct {
	pages map[uint64]*page
}

func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*page)}
}

func (m *Memory) Reset() {
	clear(m.pages)
}

// Mapped reports whether addr lies in an allocated page.
func (m *Memory) Mapped(addr uint64) bool {
	_, ok := m.pages[addr>>pageBits]
	return ok
}

// Read copies len(buf) bytes starting at addr into buf.
func (m *Memory) Read(addr uint64, buf []byte) {
	for len(buf) > 0 {
		off := addr & pageMask
		n := min(uint64(len(buf)), pageSize-off)
		if p, ok := m.pages[addr>>pageBits]; ok {
			copy(buf[:n], p[off:off+n])
		} else {
			log.ModMem.DebugZ("read at unmapped address").Hex64("addr", addr).End()
			clear(buf[:n])
		}
		buf = buf[n:]
		addr += n
	}
}

// Write copies data into memory starting at addr.
func (m *Memory) Write(addr uint64, data []byte) {
	for len(data) > 0 {
		off := addr & pageMask
		n := min(uint64(len(data)), pageSize-off)
		p, ok := m.pages[addr>>pageBits]
		if !ok {
			p = new(page)
			m.pages[addr>>pageBits] = p
		}
		copy(p[off:off+n], data[:n])
		data = data[n:]
		addr += n
	}
}

func (m *Memory) Read8(addr uint64) uint8 {
	var b [1]byte
	m.Read(addr, b[:])
	return b[0]
}

func (m *Memory) Read16(addr uint64) uint16 {
	var b [2]byte
	m.Read(addr, b[:])
	return uint16(b[0]) | uint16(b[1])<<8
}
