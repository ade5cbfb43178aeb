package main

import (
	"os"

	"github.com/ethanolivertroy/attack-tui/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
