package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	fx "github.com/robotalks/armlink/pkg/framework"
	"github.com/robotalks/armlink/pkg/l1"
	env "github.com/robotalks/armlink/pkg/l1/env/controller"
)

func init() {
	env.SetControllerType("arm", l1.ControllerMeta{Description: "Vision Guided Arm"})
	env.SetupFlags()
}

func main() {
	flag.Parse()

	e := env.NewConfig().MustNewEnv()
	loop := fx.NewLoop().Add(e)
	if err := fx.NewRunner().HandleSignals().Go(loop).Wait(); err != nil {
		log.Fatalln(err)
	}
}
