// Package hwtest provides scripted in-memory implementations of the
// hw collaborator interfaces for driver tests.
package hwtest

import (
	"fmt"
	"sync"
)

// Op records one bus operation.
type Op struct {
	Kind  string // "write_byte", "write_reg" or "read_reg"
	Addr  uint8
	Reg   byte
	Value byte
	Len   int
}

// Bus is an in-memory hw.Bus. Devices are register maps added with
// AddDevice; operations against absent devices fail like an
// unacknowledged bus address. Reads auto-increment through registers
// the way burst-capable devices do.
type Bus struct {
	lock    sync.Mutex
	devices map[uint8]map[byte]byte
	journal []Op

	// FailWrite and FailRead, when set, are consulted before every
	// write or read and may inject a fault. WriteByte consults
	// FailWrite with reg 0.
	FailWrite func(addr uint8, reg byte) error
	FailRead  func(addr uint8, reg byte) error
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{devices: make(map[uint8]map[byte]byte)}
}

// AddDevice makes a device at addr respond on the bus.
func (b *Bus) AddDevice(addr uint8) *Bus {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.devices[addr] == nil {
		b.devices[addr] = make(map[byte]byte)
	}
	return b
}

// SetRegs preloads consecutive registers of a device, adding the
// device if needed.
func (b *Bus) SetRegs(addr uint8, reg byte, values ...byte) *Bus {
	b.AddDevice(addr)
	b.lock.Lock()
	defer b.lock.Unlock()
	for i, v := range values {
		b.devices[addr][reg+byte(i)] = v
	}
	return b
}

// Reg returns the current value of a device register.
func (b *Bus) Reg(addr uint8, reg byte) byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.devices[addr][reg]
}

// Journal returns all recorded operations in order.
func (b *Bus) Journal() []Op {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]Op(nil), b.journal...)
}

// Writes returns recorded register writes for one device.
func (b *Bus) Writes(addr uint8) []Op {
	var ops []Op
	for _, op := range b.Journal() {
		if op.Addr == addr && op.Kind == "write_reg" {
			ops = append(ops, op)
		}
	}
	return ops
}

// WriteByte implements hw.Bus.
func (b *Bus) WriteByte(addr uint8, value byte) error {
	if b.FailWrite != nil {
		if err := b.FailWrite(addr, 0); err != nil {
			return err
		}
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.present(addr); err != nil {
		return err
	}
	b.journal = append(b.journal, Op{Kind: "write_byte", Addr: addr, Value: value})
	return nil
}

// WriteReg implements hw.Bus.
func (b *Bus) WriteReg(addr uint8, reg byte, value byte) error {
	if b.FailWrite != nil {
		if err := b.FailWrite(addr, reg); err != nil {
			return err
		}
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.present(addr); err != nil {
		return err
	}
	b.devices[addr][reg] = value
	b.journal = append(b.journal, Op{Kind: "write_reg", Addr: addr, Reg: reg, Value: value})
	return nil
}

// ReadReg implements hw.Bus.
func (b *Bus) ReadReg(addr uint8, reg byte, buf []byte) error {
	if b.FailRead != nil {
		if err := b.FailRead(addr, reg); err != nil {
			return err
		}
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.present(addr); err != nil {
		return err
	}
	for i := range buf {
		buf[i] = b.devices[addr][reg+byte(i)]
	}
	b.journal = append(b.journal, Op{Kind: "read_reg", Addr: addr, Reg: reg, Len: len(buf)})
	return nil
}

func (b *Bus) present(addr uint8) error {
	if b.devices[addr] == nil {
		return fmt.Errorf("hwtest: no device at addr 0x%02x", addr)
	}
	return nil
}
