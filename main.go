package main

import (
	"os"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
