package dht

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/periph.go/pkg/cli/sh"
	"github.com/robotalks/periph.go/pkg/dht22"
	"github.com/robotalks/periph.go/pkg/hw"
)

var (
	// ReadCmd wakes the sensor and takes one reading.
	ReadCmd = ishell.Cmd{
		Name:    "dht.read",
		Aliases: []string{"dr"},
		Help:    "",
		Func: sh.MustHaveLine(func(c *ishell.Context, line hw.Line) {
			sensor := dht22.New(line, dht22.Config{})
			if err := sensor.Init(); err != nil {
				c.Err(err)
				return
			}
			if err := sensor.Read(); err != nil {
				c.Err(err)
				return
			}
			r := sensor.Reading()
			sh.Print(c, r, func() string {
				return fmt.Sprintf("humidity %.1f%%, temperature %.1fC / %.1fF",
					r.Humidity, r.TemperatureC, r.TemperatureF)
			})
		}),
	}
)

func init() {
	sh.AddCmds(&ReadCmd)
}
