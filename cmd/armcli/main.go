package main

import (
	"github.com/robotalks/armlink/pkg/cli/sh"
	env "github.com/robotalks/armlink/pkg/l1/env/connector"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
