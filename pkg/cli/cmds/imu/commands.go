package imu

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/periph.go/pkg/cli/sh"
	"github.com/robotalks/periph.go/pkg/hw"
	"github.com/robotalks/periph.go/pkg/mpu6050"
)

// sensor survives across commands so imu.read reuses the bring-up done
// by imu.init.
var sensor *mpu6050.Sensor

func get(bus hw.Bus) (*mpu6050.Sensor, error) {
	if sensor == nil {
		s := mpu6050.New(bus, mpu6050.DefaultConfig())
		if err := s.Init(); err != nil {
			return nil, err
		}
		sensor = s
	}
	return sensor, nil
}

var (
	// InitCmd powers the device up and verifies its identity.
	InitCmd = ishell.Cmd{
		Name:    "imu.init",
		Aliases: []string{"ii"},
		Help:    "",
		Func: sh.MustHaveBus(func(c *ishell.Context, bus hw.Bus) {
			s := mpu6050.New(bus, mpu6050.DefaultConfig())
			if err := s.Init(); err != nil {
				c.Err(err)
				return
			}
			sensor = s
			sh.OK(c)
		}),
	}

	// ReadCmd reads one scaled sample, initializing on first use.
	ReadCmd = ishell.Cmd{
		Name:    "imu.read",
		Aliases: []string{"ir"},
		Help:    "",
		Func: sh.MustHaveBus(func(c *ishell.Context, bus hw.Bus) {
			s, err := get(bus)
			if err != nil {
				c.Err(err)
				return
			}
			if err := s.Read(); err != nil {
				c.Err(err)
				return
			}
			smp := s.Sample()
			sh.Print(c, smp, func() string {
				return fmt.Sprintf("accel %.3f %.3f %.3f g, gyro %.2f %.2f %.2f deg/s",
					smp.AccelX, smp.AccelY, smp.AccelZ, smp.GyroX, smp.GyroY, smp.GyroZ)
			})
		}),
	}
)

func init() {
	sh.AddCmds(
		&InitCmd,
		&ReadCmd,
	)
}
