// Package main is the mdi command itself.
package main

import (
	"os"

	"github.com/mdi-inspection/mdi/cli"
	"github.com/mdi-inspection/mdi/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("mdi").Error(err)
		os.Exit(1)
	}
}
