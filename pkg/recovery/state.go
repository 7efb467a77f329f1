// Package recovery provides the fault state tagging and retry backoff
// shared by the peripheral drivers.
package recovery

import (
	"fmt"
	"strconv"
)

// State tags the health of a peripheral. Every driver carries exactly
// one State alongside its latest reading.
type State uint8

// Peripheral states. Values are distinct tags, not bit flags.
const (
	// Uninitialized is the zero value: the peripheral has never been
	// brought up. It is not an error.
	Uninitialized State = iota
	// Ready means bring-up succeeded and no data has been read yet.
	Ready
	// DataUpdated means the latest read cycle stored fresh data.
	DataUpdated
	// Error is a generic fault with no more specific cause.
	Error
	// TimingError means a device did not respond within protocol timing.
	TimingError
	// ChecksumError means a received frame failed verification.
	ChecksumError
	// PowerOnError means a power-on step failed during bring-up.
	PowerOnError
	// ResetError means a reset step or a recovery attempt failed.
	ResetError
)

// IsError reports whether the state is any fault variant.
func (s State) IsError() bool {
	switch s {
	case Uninitialized, Ready, DataUpdated:
		return false
	}
	return true
}

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case DataUpdated:
		return "data_updated"
	case Error:
		return "error"
	case TimingError:
		return "timing_error"
	case ChecksumError:
		return "checksum_error"
	case PowerOnError:
		return "power_on_error"
	case ResetError:
		return "reset_error"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// MarshalText makes states serialize as words.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText reverses MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for v := Uninitialized; v <= ResetError; v++ {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}
