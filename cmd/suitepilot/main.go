package main

import (
	"os"

	"github.com/suitepilot/suitepilot/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
