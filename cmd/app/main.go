package main

import (
	"os"

	"PriceSim/cmd/app/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
