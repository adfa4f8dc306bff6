// Package main is the entry point for the NILM chat service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/nilm-chat/cmd/nilm-chat/app"
)

func main() {
	app.NewApp().Run()
}
