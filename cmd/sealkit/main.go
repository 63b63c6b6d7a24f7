package main

import (
	"os"

	"sealkit/cmd/sealkit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
