package dht22

import "time"

// frameBits is the number of pulses in a response frame.
const frameBits = 40

// Frame is the 5-byte device response: humidity high/low, temperature
// high/low, checksum.
type Frame [5]byte

// frameFromPulses thresholds the 40 response pulse widths into a
// Frame, most significant bit first. A bit is one only when its pulse
// strictly exceeds the threshold.
func frameFromPulses(pulses [frameBits]time.Duration, threshold time.Duration) Frame {
	var f Frame
	for i, p := range pulses {
		f[i/8] <<= 1
		if p > threshold {
			f[i/8] |= 1
		}
	}
	return f
}

// Checksum computes the low byte of the sum of the four data bytes.
func (f Frame) Checksum() byte {
	return f[0] + f[1] + f[2] + f[3]
}

// Valid reports whether the transmitted checksum matches.
func (f Frame) Valid() bool {
	return f.Checksum() == f[4]
}

// Humidity decodes relative humidity in percent.
func (f Frame) Humidity() float64 {
	return float64(uint16(f[0])<<8|uint16(f[1])) / 10
}

// Temperature decodes degrees Celsius. The top bit carries the sign,
// the remaining 15 bits the magnitude in tenths.
func (f Frame) Temperature() float64 {
	raw := uint16(f[2])<<8 | uint16(f[3])
	t := float64(raw&0x7fff) / 10
	if raw&0x8000 != 0 {
		t = -t
	}
	return t
}
