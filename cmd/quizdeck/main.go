package main

import (
	"os"

	"github.com/quizdeck/quizdeck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
