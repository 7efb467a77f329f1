// Package gpio implements hw.Line over memory-mapped GPIO pins.
package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/robotalks/periph.go/pkg/hw"
)

var (
	mapLock  sync.Mutex
	mapCount int
)

// Line is an hw.Line on a single GPIO pin. WaitLevel busy-polls the
// pin to keep microsecond resolution; single-wire pulse trains are too
// fast for timer-based sampling.
type Line struct {
	pin    rpio.Pin
	closed bool
}

// OpenLine prepares a GPIO pin as an hw.Line. The GPIO memory range
// is mapped on first use and unmapped when the last line is closed.
func OpenLine(pin int) (*Line, error) {
	mapLock.Lock()
	defer mapLock.Unlock()
	if mapCount == 0 {
		if err := rpio.Open(); err != nil {
			return nil, fmt.Errorf("gpio: map memory: %w", err)
		}
	}
	mapCount++
	return &Line{pin: rpio.Pin(pin)}, nil
}

// Output implements hw.Line.
func (l *Line) Output() error {
	l.pin.Output()
	return nil
}

// Input implements hw.Line. The internal pull-up keeps an idle
// single-wire line high.
func (l *Line) Input() error {
	l.pin.Input()
	l.pin.PullUp()
	return nil
}

// Set implements hw.Line.
func (l *Line) Set(level hw.Level) error {
	if level == hw.High {
		l.pin.High()
	} else {
		l.pin.Low()
	}
	return nil
}

// Read implements hw.Line.
func (l *Line) Read() (hw.Level, error) {
	return hw.Level(l.pin.Read() == rpio.High), nil
}

// WaitLevel implements hw.Line.
func (l *Line) WaitLevel(level hw.Level, timeout time.Duration) (time.Duration, error) {
	want := rpio.Low
	if level == hw.High {
		want = rpio.High
	}
	start := time.Now()
	for {
		if l.pin.Read() == want {
			return time.Since(start), nil
		}
		if elapsed := time.Since(start); elapsed > timeout {
			return elapsed, hw.ErrTimeout
		}
	}
}

// Close releases the pin and unmaps GPIO memory with the last line.
func (l *Line) Close() error {
	mapLock.Lock()
	defer mapLock.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.pin.Input()
	mapCount--
	if mapCount == 0 {
		return rpio.Close()
	}
	return nil
}
