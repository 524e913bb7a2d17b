package main

import (
	"os"

	"github.com/bdmihai/pyphotodb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
