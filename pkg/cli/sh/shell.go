package sh

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/periph.go/pkg/config"
	"github.com/robotalks/periph.go/pkg/hw"
	"github.com/robotalks/periph.go/pkg/hw/gpio"
	"github.com/robotalks/periph.go/pkg/hw/i2cdev"
)

// Shell provides ishell backed interactive shell over the peripheral
// drivers. Hardware opens lazily on first use.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell

	I2CDevice string
	DHT22Pin  int

	bus  *i2cdev.Bus
	line *gpio.Line
}

const (
	shellKey = "$shell"
	prompt   = "periph > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	i2cDevice  = config.DefaultI2CDevice
	dht22Pin   = config.DefaultDHT22Pin

	// commands
	commands []*ishell.Cmd
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&i2cDevice, "i2c", i2cDevice, "I2C bus device file.")
	flag.IntVar(&dht22Pin, "pin", dht22Pin, "GPIO pin (BCM numbering) of the DHT22 data line.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:     ishell.New(),
		I2CDevice: i2cDevice,
		DHT22Pin:  dht22Pin,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Bus opens the I2C bus on first use.
func (s *Shell) Bus() (hw.Bus, error) {
	if s.bus == nil {
		if _, err := os.Stat(s.I2CDevice); err != nil {
			return nil, err
		}
		s.bus = i2cdev.Open(s.I2CDevice)
	}
	return s.bus, nil
}

// Line opens the DHT22 data line on first use.
func (s *Shell) Line() (hw.Line, error) {
	if s.line == nil {
		line, err := gpio.OpenLine(s.DHT22Pin)
		if err != nil {
			return nil, err
		}
		s.line = line
	}
	return s.line, nil
}

// MustHaveBus wraps a command func that needs the I2C bus.
func MustHaveBus(fn func(c *ishell.Context, bus hw.Bus)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		bus, err := ShellFrom(c).Bus()
		if err != nil {
			c.Err(err)
			return
		}
		fn(c, bus)
	}
}

// MustHaveLine wraps a command func that needs the sensor line.
func MustHaveLine(fn func(c *ishell.Context, line hw.Line)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		line, err := ShellFrom(c).Line()
		if err != nil {
			c.Err(err)
			return
		}
		fn(c, line)
	}
}

// Print writes a command result, as JSON when requested.
func Print(c *ishell.Context, v interface{}, plain func() string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(plain())
}

// OK reports command success when there is no result to print.
func OK(c *ishell.Context) {
	if ShellFrom(c).OutputJSON {
		c.Println(`{"ok":true}`)
		return
	}
	c.Println("OK")
}

// Close releases the lazily opened hardware.
func (s *Shell) Close() {
	if s.bus != nil {
		s.bus.Close()
		s.bus = nil
	}
	if s.line != nil {
		s.line.Close()
		s.line = nil
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New().Run(flag.Args()...)
}
