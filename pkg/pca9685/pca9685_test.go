package pca9685

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/periph.go/pkg/hw/hwtest"
	"github.com/robotalks/periph.go/pkg/recovery"
)

func pulseAt(bus *hwtest.Bus, addr uint8, ch uint8) uint16 {
	base := regLED0OnL + 4*ch
	return uint16(bus.Reg(addr, base+2)) | uint16(bus.Reg(addr, base+3))<<8
}

func TestRegistryPrescale(t *testing.T) {
	require.Equal(t, byte(121), New(hwtest.NewBus(), Config{}).Prescale())
	require.Equal(t, byte(101), New(hwtest.NewBus(), Config{PWMFreq: 60}).Prescale())
}

func TestRegistryInitBringUp(t *testing.T) {
	bus := hwtest.NewBus().AddDevice(0x40).AddDevice(0x41)
	r := New(bus, Config{})
	require.NoError(t, r.Init(2))
	require.Equal(t, uint8(2), r.Count())

	boards := r.Boards()
	require.Len(t, boards, 2)
	require.Equal(t, BoardInfo{ID: 0, Addr: 0x40, State: recovery.Ready}, boards[0])
	require.Equal(t, BoardInfo{ID: 1, Addr: 0x41, State: recovery.Ready}, boards[1])

	for _, addr := range []uint8{0x40, 0x41} {
		writes := bus.Writes(addr)
		require.Len(t, writes, 3)
		require.Equal(t, regMode1, writes[0].Reg)
		require.Equal(t, mode1Sleep, writes[0].Value)
		require.Equal(t, regPrescale, writes[1].Reg)
		require.Equal(t, byte(121), writes[1].Value)
		require.Equal(t, regMode1, writes[2].Reg)
		require.Equal(t, mode1Restart, writes[2].Value)
	}
}

func TestRegistryInitIdempotent(t *testing.T) {
	bus := hwtest.NewBus().AddDevice(0x40).AddDevice(0x41)
	r := New(bus, Config{})
	require.NoError(t, r.Init(2))
	journal := len(bus.Journal())

	// Registered ids are skipped entirely on a repeated init.
	require.NoError(t, r.Init(2))
	require.Len(t, bus.Journal(), journal)
	require.Equal(t, uint8(2), r.Count())
}

func TestRegistryInitGrows(t *testing.T) {
	bus := hwtest.NewBus().AddDevice(0x40).AddDevice(0x41)
	r := New(bus, Config{})
	require.NoError(t, r.Init(1))
	require.NoError(t, r.Init(2))
	require.Equal(t, uint8(2), r.Count())
	require.Len(t, bus.Writes(0x40), 3)
	require.Len(t, bus.Writes(0x41), 3)

	// A smaller count never shrinks the registry.
	require.NoError(t, r.Init(1))
	require.Equal(t, uint8(2), r.Count())
}

func TestRegistryInitFailedBoardNotRegistered(t *testing.T) {
	bus := hwtest.NewBus().AddDevice(0x40)
	r := New(bus, Config{})

	err := r.Init(2)
	require.Error(t, err)
	require.Len(t, r.Boards(), 1)
	require.Equal(t, uint8(2), r.Count())

	require.ErrorIs(t, r.SetAngle(1, 1, 90), ErrNotFound)
	require.NoError(t, r.SetAngle(1, 0, 90))

	// The missing board comes up once its hardware responds.
	bus.AddDevice(0x41)
	require.NoError(t, r.Init(2))
	require.Len(t, r.Boards(), 2)
	require.NoError(t, r.SetAngle(1, 1, 90))
}

func TestSetAngleMapping(t *testing.T) {
	testCases := []struct {
		angle float64
		pulse uint16
	}{
		{0, 0},
		{45, 1024},
		{90, 2048},
		{135, 3071},
		{180, 4095},
	}
	bus := hwtest.NewBus().AddDevice(0x40)
	r := New(bus, Config{})
	require.NoError(t, r.Init(1))

	var prev uint16
	for _, c := range testCases {
		require.NoError(t, r.SetAngle(1, 0, c.angle))
		pulse := pulseAt(bus, 0x40, 0)
		require.Equal(t, c.pulse, pulse, "angle %v", c.angle)
		require.GreaterOrEqual(t, pulse, prev)
		prev = pulse
	}
}

func TestSetAngleMask(t *testing.T) {
	bus := hwtest.NewBus().AddDevice(0x40)
	r := New(bus, Config{})
	require.NoError(t, r.Init(1))
	before := len(bus.Journal())

	require.NoError(t, r.SetAngle(0x0005, 0, 180))
	require.Equal(t, uint16(4095), pulseAt(bus, 0x40, 0))
	require.Zero(t, pulseAt(bus, 0x40, 1))
	require.Equal(t, uint16(4095), pulseAt(bus, 0x40, 2))

	// Two channels, four register writes each.
	require.Len(t, bus.Journal(), before+8)
}

func TestSetAngleValidation(t *testing.T) {
	bus := hwtest.NewBus().AddDevice(0x40)
	r := New(bus, Config{})
	require.NoError(t, r.Init(1))

	require.ErrorIs(t, r.SetAngle(1, 0, -0.1), ErrInvalidArgument)
	require.ErrorIs(t, r.SetAngle(1, 0, 180.1), ErrInvalidArgument)
	require.ErrorIs(t, r.SetAngle(1, 0, math.NaN()), ErrInvalidArgument)
	require.ErrorIs(t, r.SetAngle(1, 3, 90), ErrInvalidArgument)

	var nilRegistry *Registry
	require.ErrorIs(t, nilRegistry.SetAngle(1, 0, 90), ErrInvalidArgument)
}

func TestSetAngleNotReadyBoard(t *testing.T) {
	bus := hwtest.NewBus().AddDevice(0x40)
	r := New(bus, Config{})
	require.NoError(t, r.Init(1))

	r.boards[0].state = recovery.Error
	require.ErrorIs(t, r.SetAngle(1, 0, 90), ErrNotReady)
}

func TestSetAnglePartialFanOut(t *testing.T) {
	bus := hwtest.NewBus().AddDevice(0x40)
	r := New(bus, Config{})
	require.NoError(t, r.Init(1))

	// Channel 2 registers start at LED0_ON_L + 8.
	bus.FailWrite = func(addr uint8, reg byte) error {
		if reg >= regLED0OnL+8 {
			return errors.New("nack")
		}
		return nil
	}
	err := r.SetAngle(0x0007, 0, 180)
	require.Error(t, err)

	// Channels written before the failure keep the new pulse.
	require.Equal(t, uint16(4095), pulseAt(bus, 0x40, 0))
	require.Equal(t, uint16(4095), pulseAt(bus, 0x40, 1))
	require.Zero(t, pulseAt(bus, 0x40, 2))
}
