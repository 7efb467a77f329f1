// Package i2cdev implements hw.Bus over a Linux I²C character device.
package i2cdev

import (
	"fmt"
	"sync"

	"golang.org/x/exp/io/i2c"

	fx "github.com/robotalks/periph.go/pkg/framework"
)

// Bus is an hw.Bus backed by a devfs adapter, e.g. /dev/i2c-1.
// A connection per device address is opened lazily and kept for reuse.
// All operations are serialized, so peripheral drivers can share
// a Bus without locking.
type Bus struct {
	dev string

	lock  sync.Mutex
	conns map[uint8]*i2c.Device
}

// Open creates a Bus over an adapter device file.
func Open(device string) *Bus {
	return &Bus{dev: device, conns: make(map[uint8]*i2c.Device)}
}

// WriteByte implements hw.Bus.
func (b *Bus) WriteByte(addr uint8, value byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	d, err := b.device(addr)
	if err != nil {
		return err
	}
	return d.Write([]byte{value})
}

// WriteReg implements hw.Bus.
func (b *Bus) WriteReg(addr uint8, reg byte, value byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	d, err := b.device(addr)
	if err != nil {
		return err
	}
	return d.WriteReg(reg, []byte{value})
}

// ReadReg implements hw.Bus.
func (b *Bus) ReadReg(addr uint8, reg byte, buf []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	d, err := b.device(addr)
	if err != nil {
		return err
	}
	return d.ReadReg(reg, buf)
}

// Close closes all open device connections.
func (b *Bus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	var errs fx.AggregatedError
	for addr, d := range b.conns {
		errs.Add(d.Close())
		delete(b.conns, addr)
	}
	return errs.Aggregate()
}

func (b *Bus) device(addr uint8) (*i2c.Device, error) {
	if d := b.conns[addr]; d != nil {
		return d, nil
	}
	d, err := i2c.Open(&i2c.Devfs{Dev: b.dev}, int(addr))
	if err != nil {
		return nil, fmt.Errorf("i2cdev: open %s addr 0x%02x: %w", b.dev, addr, err)
	}
	b.conns[addr] = d
	return d, nil
}
