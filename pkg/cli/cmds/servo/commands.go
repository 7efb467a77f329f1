package servo

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/periph.go/pkg/cli/sh"
	"github.com/robotalks/periph.go/pkg/hw"
	"github.com/robotalks/periph.go/pkg/pca9685"
)

// registry survives across commands so servo.angle drives the boards
// brought up by servo.init.
var registry *pca9685.Registry

var (
	// InitCmd registers and brings up BOARDS boards.
	InitCmd = ishell.Cmd{
		Name:    "servo.init",
		Aliases: []string{"si"},
		Help:    "[BOARDS]",
		Func: sh.MustHaveBus(func(c *ishell.Context, bus hw.Bus) {
			count := uint8(1)
			if len(c.Args) > 0 {
				val, err := strconv.ParseUint(c.Args[0], 0, 8)
				if err != nil {
					c.Err(fmt.Errorf("invalid BOARDS: %v", err))
					return
				}
				count = uint8(val)
			}
			if registry == nil {
				registry = pca9685.New(bus, pca9685.Config{})
			}
			if err := registry.Init(count); err != nil {
				c.Err(err)
				return
			}
			boards := registry.Boards()
			sh.Print(c, boards, func() string {
				var w bytes.Buffer
				for _, b := range boards {
					fmt.Fprintf(&w, "board %d at 0x%02x: %s\n", b.ID, b.Addr, b.State)
				}
				return strings.TrimRight(w.String(), "\n")
			})
		}),
	}

	// AngleCmd drives the masked channels of one board to an angle in
	// degrees.
	AngleCmd = ishell.Cmd{
		Name:    "servo.angle",
		Aliases: []string{"sa"},
		Help:    "BOARD MASK ANGLE",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 3 {
				c.Err(fmt.Errorf("BOARD MASK ANGLE required"))
				return
			}
			id, err := strconv.ParseUint(c.Args[0], 0, 8)
			if err != nil {
				c.Err(fmt.Errorf("invalid BOARD: %v", err))
				return
			}
			mask, err := strconv.ParseUint(c.Args[1], 0, 16)
			if err != nil {
				c.Err(fmt.Errorf("invalid MASK: %v", err))
				return
			}
			angle, err := strconv.ParseFloat(c.Args[2], 64)
			if err != nil {
				c.Err(fmt.Errorf("invalid ANGLE: %v", err))
				return
			}
			if err := registry.SetAngle(uint16(mask), uint8(id), angle); err != nil {
				c.Err(err)
				return
			}
			sh.OK(c)
		},
	}
)

func init() {
	sh.AddCmds(
		&InitCmd,
		&AngleCmd,
	)
}
