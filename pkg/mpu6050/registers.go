package mpu6050

// DefaultAddr is the device address with AD0 low.
const DefaultAddr uint8 = 0x68

// Device registers.
const (
	regSampleRateDiv byte = 0x19
	regConfig        byte = 0x1A
	regGyroConfig    byte = 0x1B
	regAccelConfig   byte = 0x1C
	regAccelXOutH    byte = 0x3B
	regGyroXOutH     byte = 0x43
	regPowerMgmt1    byte = 0x6B
	regWhoAmI        byte = 0x75
)

// Power management commands.
const (
	cmdPowerOn byte = 0x00
	cmdReset   byte = 0x80
)

// identity is the value the WHO_AM_I register must report.
const identity byte = 0x68

// Digital low-pass filter settings for the config register.
const (
	DLPF260Hz byte = iota
	DLPF184Hz
	DLPF94Hz
	DLPF44Hz
	DLPF21Hz
	DLPF10Hz
	DLPF5Hz
)

// rangeEntry maps a full-scale register value to the sensitivity
// dividing raw axis counts into physical units.
type rangeEntry struct {
	config      byte
	sensitivity float64
}

// Full-scale tables, never mutated. Accel sensitivities are LSB per g
// over ±2/±4/±8/±16 g; gyro sensitivities are LSB per degree/second
// over ±250/±500/±1000/±2000 deg/s.
var (
	accelRanges = [4]rangeEntry{
		{0x00, 16384},
		{0x08, 8192},
		{0x10, 4096},
		{0x18, 2048},
	}
	gyroRanges = [4]rangeEntry{
		{0x00, 131.0},
		{0x08, 65.5},
		{0x10, 32.8},
		{0x18, 16.4},
	}
)
