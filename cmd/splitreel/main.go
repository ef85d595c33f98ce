package main

import (
	"os"

	"github.com/splitreel/splitreel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
