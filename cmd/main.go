package main

import (
	"os"

	"github.com/verkkograph/verkko/cmd/verkko"
)

func main() {
	if err := verkko.Execute(); err != nil {
		os.Exit(1)
	}
}
