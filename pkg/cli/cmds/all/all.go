// Package all registers every command group with the shell.
package all

import (
	_ "github.com/robotalks/periph.go/pkg/cli/cmds/bus"
	_ "github.com/robotalks/periph.go/pkg/cli/cmds/dht"
	_ "github.com/robotalks/periph.go/pkg/cli/cmds/imu"
	_ "github.com/robotalks/periph.go/pkg/cli/cmds/servo"
)
