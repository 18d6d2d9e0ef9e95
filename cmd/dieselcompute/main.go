package main

import (
	"os"

	"github.com/andewx/dieselcompute/cmd/dieselcompute/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
