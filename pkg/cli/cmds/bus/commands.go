package bus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/periph.go/pkg/cli/sh"
	"github.com/robotalks/periph.go/pkg/hw"
)

// Probed address range, skipping the reserved addresses at both ends.
const (
	scanFirst uint8 = 0x03
	scanLast  uint8 = 0x77
)

var (
	// WriteCmd writes one raw byte to a device address.
	WriteCmd = ishell.Cmd{
		Name:    "bus.write",
		Aliases: []string{"bw"},
		Help:    "ADDR BYTE",
		Func: sh.MustHaveBus(func(c *ishell.Context, b hw.Bus) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("ADDR BYTE required"))
				return
			}
			addr, err := strconv.ParseUint(c.Args[0], 0, 7)
			if err != nil {
				c.Err(fmt.Errorf("invalid ADDR: %v", err))
				return
			}
			val, err := strconv.ParseUint(c.Args[1], 0, 8)
			if err != nil {
				c.Err(fmt.Errorf("invalid BYTE: %v", err))
				return
			}
			if err := b.WriteByte(uint8(addr), byte(val)); err != nil {
				c.Err(err)
				return
			}
			sh.OK(c)
		}),
	}

	// ScanCmd probes the 7-bit address space for responding devices.
	ScanCmd = ishell.Cmd{
		Name:    "bus.scan",
		Aliases: []string{"bs"},
		Help:    "",
		Func: sh.MustHaveBus(func(c *ishell.Context, b hw.Bus) {
			found := []string{}
			for addr := scanFirst; addr <= scanLast; addr++ {
				if err := b.WriteByte(addr, 0); err == nil {
					found = append(found, fmt.Sprintf("0x%02x", addr))
				}
			}
			sh.Print(c, found, func() string {
				if len(found) == 0 {
					return "no devices found"
				}
				return strings.Join(found, " ")
			})
		}),
	}
)

func init() {
	sh.AddCmds(
		&WriteCmd,
		&ScanCmd,
	)
}
