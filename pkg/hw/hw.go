// Package hw defines the hardware collaborator seams the peripheral
// drivers depend on: a register-addressed byte bus and a single data
// line with pulse timing. Implementations live in subpackages; tests
// use the scripted fakes in hwtest.
package hw

import (
	"errors"
	"time"
)

// Level is a digital line level.
type Level bool

// Line levels.
const (
	Low  Level = false
	High Level = true
)

// String implements fmt.Stringer.
func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// ErrTimeout indicates a level wait expired before the line changed.
var ErrTimeout = errors.New("hw: wait timed out")

// Bus is a register-addressed byte bus shared by peripherals.
// Implementations serialize concurrent use; drivers never lock.
type Bus interface {
	// WriteByte sends a bare byte to the device at addr.
	WriteByte(addr uint8, value byte) error
	// WriteReg writes one byte into a device register.
	WriteReg(addr uint8, reg byte, value byte) error
	// ReadReg fills buf from consecutive device registers starting
	// at reg.
	ReadReg(addr uint8, reg byte, buf []byte) error
}

// Line is a bidirectional data line with pulse-width timing.
type Line interface {
	// Output switches the line to be driven by the controller.
	Output() error
	// Input releases the line to the device; a pull-up raises it.
	Input() error
	// Set drives the line to level while in output.
	Set(level Level) error
	// Read samples the current level.
	Read() (Level, error)
	// WaitLevel blocks until the line reads level, reporting how long
	// the wait took, which doubles as the width of the pulse that just
	// ended. ErrTimeout after timeout.
	WaitLevel(level Level, timeout time.Duration) (time.Duration, error)
}
