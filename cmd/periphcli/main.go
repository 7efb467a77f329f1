package main

import (
	"github.com/robotalks/periph.go/pkg/cli/sh"

	_ "github.com/robotalks/periph.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
