package main

import (
	"os"

	"github.com/opd-ai/noisewire/cmd/noisewire/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
