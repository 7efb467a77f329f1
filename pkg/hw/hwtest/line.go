package hwtest

import (
	"time"

	"github.com/robotalks/periph.go/pkg/hw"
)

// Pulse widths used by ScriptFrame. A zero bit holds the line high
// for well under the decode threshold, a one bit well over it.
const (
	ZeroPulse     = 26 * time.Microsecond
	OnePulse      = 70 * time.Microsecond
	preamblePulse = 50 * time.Microsecond
	ackPulse      = 80 * time.Microsecond
)

type waitStep struct {
	d   time.Duration
	err error
}

// Line is a scripted hw.Line. Each WaitLevel call consumes the next
// scripted step in order; an exhausted script times out, which is how
// a silent device is simulated. Direction and level writes are
// journaled in Events.
type Line struct {
	// Events records "output", "input", "set low", "set high".
	Events []string
	// Level is returned by Read.
	Level hw.Level
	// OutputErr, InputErr and SetErr inject faults into the
	// corresponding calls.
	OutputErr error
	InputErr  error
	SetErr    error

	waits []waitStep
}

// NewLine creates a Line with an empty script.
func NewLine() *Line {
	return &Line{}
}

// PushWait scripts the next WaitLevel to succeed after d.
func (l *Line) PushWait(d time.Duration) *Line {
	l.waits = append(l.waits, waitStep{d: d})
	return l
}

// PushTimeout scripts the next WaitLevel to time out.
func (l *Line) PushTimeout() *Line {
	l.waits = append(l.waits, waitStep{err: hw.ErrTimeout})
	return l
}

// ScriptAck scripts the three handshake edges a device produces after
// the start signal.
func (l *Line) ScriptAck() *Line {
	return l.PushWait(30 * time.Microsecond).PushWait(ackPulse).PushWait(ackPulse)
}

// ScriptFrame scripts the 40 data pulses of a frame, most significant
// bit first: a preamble wait plus the bit pulse per bit.
func (l *Line) ScriptFrame(frame [5]byte) *Line {
	for i := 0; i < len(frame)*8; i++ {
		pulse := ZeroPulse
		if frame[i/8]&(0x80>>(i%8)) != 0 {
			pulse = OnePulse
		}
		l.PushWait(preamblePulse).PushWait(pulse)
	}
	return l
}

// ScriptRead scripts one complete successful exchange for a frame.
func (l *Line) ScriptRead(frame [5]byte) *Line {
	return l.ScriptAck().ScriptFrame(frame)
}

// Remaining returns the number of unconsumed wait steps.
func (l *Line) Remaining() int {
	return len(l.waits)
}

// Output implements hw.Line.
func (l *Line) Output() error {
	if l.OutputErr != nil {
		return l.OutputErr
	}
	l.Events = append(l.Events, "output")
	return nil
}

// Input implements hw.Line.
func (l *Line) Input() error {
	if l.InputErr != nil {
		return l.InputErr
	}
	l.Events = append(l.Events, "input")
	return nil
}

// Set implements hw.Line.
func (l *Line) Set(level hw.Level) error {
	if l.SetErr != nil {
		return l.SetErr
	}
	l.Events = append(l.Events, "set "+level.String())
	return nil
}

// Read implements hw.Line.
func (l *Line) Read() (hw.Level, error) {
	return l.Level, nil
}

// WaitLevel implements hw.Line.
func (l *Line) WaitLevel(level hw.Level, timeout time.Duration) (time.Duration, error) {
	if len(l.waits) == 0 {
		return timeout, hw.ErrTimeout
	}
	step := l.waits[0]
	l.waits = l.waits[1:]
	if step.err != nil {
		return timeout, step.err
	}
	if step.d > timeout {
		return timeout, hw.ErrTimeout
	}
	return step.d, nil
}
